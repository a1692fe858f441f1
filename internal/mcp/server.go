// Package mcp exposes the cynicast studio as a Model Context Protocol tool
// server, built on the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk).
//
// Two tools are registered:
//   - "generate_script" writes a podcast script from an episode brief.
//   - "process_audio" transcribes or sarcastically rewrites a recording,
//     given either a file path inside the audio directory or base64 data.
//
// Typical usage:
//
//	srv := mcp.NewServer(application, mcp.WithAudioDir(dir))
//	err := srv.Run(ctx, &mcpsdk.StdioTransport{})
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/internal/studio"
)

// Studio is the backend the tools call into. [app.App] implements it.
type Studio interface {
	GenerateScript(ctx context.Context, req studio.ScriptRequest) (*studio.Script, error)
	ProcessAudio(ctx context.Context, req studio.AudioRequest) (*studio.AudioResult, error)
}

// Tool names.
const (
	ToolGenerateScript = "generate_script"
	ToolProcessAudio   = "process_audio"
)

// Server is an MCP server bound to a [Studio].
type Server struct {
	studio   Studio
	sdk      *mcpsdk.Server
	log      *slog.Logger
	metrics  *observe.Metrics
	audioDir string
	version  string
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics sets the metrics sink. Defaults to observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAudioDir restricts process_audio file paths to dir. Defaults to the
// working directory.
func WithAudioDir(dir string) Option {
	return func(s *Server) { s.audioDir = dir }
}

// WithVersion sets the implementation version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a Server with both studio tools registered.
func NewServer(st Studio, opts ...Option) *Server {
	s := &Server{
		studio:  st,
		log:     slog.Default(),
		version: "dev",
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.audioDir == "" {
		if wd, err := os.Getwd(); err == nil {
			s.audioDir = wd
		}
	}

	s.sdk = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: "cynicast", Title: "Cynicast studio", Version: s.version},
		&mcpsdk.ServerOptions{
			Instructions: "Herramientas de producción para un podcast de tecnología sarcástico.",
			Logger:       s.log,
		},
	)
	mcpsdk.AddTool(s.sdk, &mcpsdk.Tool{
		Name:        ToolGenerateScript,
		Title:       "Generar guion",
		Description: "Writes a sarcastic tech-podcast script (Spanish) about an AI tool. Returns the title and the screenplay text.",
	}, s.generateScript)
	mcpsdk.AddTool(s.sdk, &mcpsdk.Tool{
		Name:        ToolProcessAudio,
		Title:       "Laboratorio de audio",
		Description: "Transcribes a recording verbatim (mode=transcribe) or rewrites it with a sarcasm level from 1 to 10 (mode=humor). Pass either path or data_base64.",
	}, s.processAudio)
	return s
}

// Run serves MCP requests on t until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context, t mcpsdk.Transport) error {
	s.log.Info("mcp: server starting", "version", s.version, "audio_dir", s.audioDir)
	if err := s.sdk.Run(ctx, t); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: run: %w", err)
	}
	return nil
}

// Connect starts a single session on t and returns without blocking.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	ss, err := s.sdk.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect: %w", err)
	}
	return ss, nil
}
