package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/cynicast/internal/studio"
)

// ScriptInput is the argument object of generate_script.
type ScriptInput struct {
	ToolName      string `json:"tool_name,omitempty" jsonschema:"the AI tool the episode roasts, e.g. Gemini"`
	ToneIntensity int    `json:"tone_intensity,omitempty" jsonschema:"sarcasm intensity from 1 to 10"`
	PodcastName   string `json:"podcast_name,omitempty" jsonschema:"the podcast name used in the title"`
	HostName      string `json:"host_name,omitempty" jsonschema:"the host's name"`
}

// ScriptOutput is the structured result of generate_script.
type ScriptOutput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ToolName string `json:"tool_name"`
}

// AudioInput is the argument object of process_audio.
type AudioInput struct {
	Path       string `json:"path,omitempty" jsonschema:"audio file path relative to the server's audio directory"`
	DataBase64 string `json:"data_base64,omitempty" jsonschema:"base64-encoded audio, used when path is empty"`
	Name       string `json:"name,omitempty" jsonschema:"file name shown in the result header"`
	MIMEType   string `json:"mime_type,omitempty" jsonschema:"audio MIME type; guessed from the file extension when empty"`
	Mode       string `json:"mode,omitempty" jsonschema:"transcribe (default) or humor"`
	Sarcasm    int    `json:"sarcasm,omitempty" jsonschema:"sarcasm level from 1 to 10 for humor mode"`
}

// AudioOutput is the structured result of process_audio.
type AudioOutput struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

func (s *Server) generateScript(ctx context.Context, _ *mcpsdk.CallToolRequest, in ScriptInput) (*mcpsdk.CallToolResult, ScriptOutput, error) {
	start := time.Now()
	script, err := s.studio.GenerateScript(ctx, studio.ScriptRequest{
		ToolName:      in.ToolName,
		ToneIntensity: in.ToneIntensity,
		PodcastName:   in.PodcastName,
		HostName:      in.HostName,
	})
	s.record(ctx, ToolGenerateScript, start, err)
	if err != nil {
		return nil, ScriptOutput{}, err
	}
	out := ScriptOutput{Title: script.Title, Content: script.Content, ToolName: script.ToolName}
	return textResult(script.Title + "\n\n" + script.Content), out, nil
}

func (s *Server) processAudio(ctx context.Context, _ *mcpsdk.CallToolRequest, in AudioInput) (*mcpsdk.CallToolResult, AudioOutput, error) {
	start := time.Now()
	res, err := s.runAudio(ctx, in)
	s.record(ctx, ToolProcessAudio, start, err)
	if err != nil {
		return nil, AudioOutput{}, err
	}
	return textResult(res.String()), AudioOutput{Header: res.Header, Text: res.Text}, nil
}

func (s *Server) runAudio(ctx context.Context, in AudioInput) (*studio.AudioResult, error) {
	req, err := s.audioRequest(in)
	if err != nil {
		return nil, err
	}
	return s.studio.ProcessAudio(ctx, req)
}

func (s *Server) audioRequest(in AudioInput) (studio.AudioRequest, error) {
	mode, err := studio.ParseMode(in.Mode)
	if err != nil {
		return studio.AudioRequest{}, err
	}
	req := studio.AudioRequest{
		Name:     in.Name,
		MIMEType: in.MIMEType,
		Mode:     mode,
		Sarcasm:  in.Sarcasm,
	}

	switch {
	case in.Path != "":
		p, err := safePath(s.audioDir, in.Path)
		if err != nil {
			return req, err
		}
		info, err := os.Stat(p)
		if err != nil {
			return req, fmt.Errorf("mcp: stat audio: %w", err)
		}
		if info.Size() > studio.MaxAudioBytes {
			return req, fmt.Errorf("%w: %d bytes", studio.ErrAudioTooLarge, info.Size())
		}
		if req.Data, err = os.ReadFile(p); err != nil {
			return req, fmt.Errorf("mcp: read audio: %w", err)
		}
		if req.Name == "" {
			req.Name = filepath.Base(in.Path)
		}
	case in.DataBase64 != "":
		if req.Data, err = base64.StdEncoding.DecodeString(in.DataBase64); err != nil {
			return req, fmt.Errorf("mcp: decode data_base64: %w", err)
		}
	default:
		return req, errors.New("mcp: one of path or data_base64 is required")
	}

	if req.MIMEType == "" && req.Name != "" {
		req.MIMEType = mime.TypeByExtension(strings.ToLower(filepath.Ext(req.Name)))
	}
	return req, nil
}

// safePath resolves rel against base and rejects paths that escape base,
// including through symlinks.
func safePath(base, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("mcp: path %q must be relative to the audio directory", rel)
	}
	root, err := filepath.EvalSymlinks(base)
	if err != nil {
		return "", fmt.Errorf("mcp: audio directory: %w", err)
	}
	if !within(root, filepath.Join(root, rel)) {
		return "", fmt.Errorf("mcp: path %q escapes the audio directory", rel)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(root, rel))
	if err != nil {
		return "", fmt.Errorf("mcp: resolve audio path: %w", err)
	}
	if !within(root, resolved) {
		return "", fmt.Errorf("mcp: path %q escapes the audio directory", rel)
	}
	return resolved, nil
}

func within(root, p string) bool {
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}

func (s *Server) record(ctx context.Context, tool string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		s.log.Warn("mcp: tool call failed", "tool", tool, "err", err)
	} else {
		s.log.Info("mcp: tool call", "tool", tool, "duration", time.Since(start))
	}
	s.metrics.RecordToolCall(ctx, tool, status)
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}}}
}
