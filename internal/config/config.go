// Package config provides the configuration schema, loader, hot-reload
// watcher and provider registry for cynicast.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog.Level. Unknown and empty values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr   = ":8080"
	DefaultVoice        = "Fenrir"
	DefaultFrameSize    = 4096
	DefaultSendQueue    = 8
	DefaultVolumeGain   = 5.0
	DefaultPodcastName  = "El Algoritmo Bizarro"
	DefaultHostName     = "Cyber-Vato"
	DefaultToolName     = "Gemini"
	DefaultIntensity    = 7
	DefaultSarcasm      = 8
	DefaultLiveProvider = "gemini"
	DefaultLLMProvider  = "gemini"

	DefaultShutdownTimeout = 10 * time.Second

	// DefaultInstructions is the live producer persona.
	DefaultInstructions = "Eres el productor ejecutivo de un podcast de tecnología sarcástico. " +
		"Tu trabajo es ayudar al guionista (el usuario) a hacer una lluvia de ideas. " +
		"Eres cínico, rápido, usas humor negro y odias los clichés. Habla español."
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Live       LiveConfig       `yaml:"live"`
	Studio     StudioConfig     `yaml:"studio"`
	Resilience ResilienceConfig `yaml:"resilience"`
}

// ServerConfig holds network and logging settings for `cynicast serve`.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on.
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`

	// TLS enables HTTPS when set.
	TLS *TLSConfig `yaml:"tls"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TLSConfig holds PEM file paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig selects the backend for each role. Names are looked up in
// the [Registry].
type ProvidersConfig struct {
	// Live is the realtime voice transport.
	Live ProviderEntry `yaml:"live"`

	// LLM drives the script writer and the audio lab.
	LLM ProviderEntry `yaml:"llm"`

	// LLMFallbacks are tried in order when LLM fails or its breaker is open.
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`

	// STT optionally handles audio-lab transcriptions. When empty the LLM
	// transcribes.
	STT ProviderEntry `yaml:"stt"`
}

// ProviderEntry is the configuration block shared by all provider kinds.
type ProviderEntry struct {
	// Name selects the registered implementation (e.g. "gemini", "openai").
	Name string `yaml:"name"`

	// APIKey authenticates against the provider. ${VAR} references are
	// expanded from the environment at load time.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model; empty uses the provider default.
	Model string `yaml:"model"`

	// Options holds provider-specific values.
	Options map[string]any `yaml:"options"`
}

// IsZero reports whether no provider was configured.
func (e ProviderEntry) IsZero() bool { return e.Name == "" }

// LiveConfig tunes the live producer session.
type LiveConfig struct {
	Voice        string `yaml:"voice"`
	Instructions string `yaml:"instructions"`

	// Transcribe enables input and output transcripts.
	Transcribe *bool `yaml:"transcribe"`

	// FrameSize is the number of 16 kHz samples per outbound frame.
	FrameSize int `yaml:"frame_size"`

	// SendQueue is the capacity of the outbound frame channel.
	SendQueue int `yaml:"send_queue"`

	VolumeGain float64 `yaml:"volume_gain"`

	// ConnectTimeout bounds transport setup. Zero means no timeout.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// TranscribeEnabled reports the effective transcript setting. Default: true.
func (l LiveConfig) TranscribeEnabled() bool {
	return l.Transcribe == nil || *l.Transcribe
}

// StudioConfig holds defaults for the script writer and audio lab.
type StudioConfig struct {
	PodcastName string `yaml:"podcast_name"`
	HostName    string `yaml:"host_name"`
	ToolName    string `yaml:"tool_name"`
	Intensity   int    `yaml:"intensity"`
	Sarcasm     int    `yaml:"sarcasm"`

	// Timeout bounds a single studio request. Zero means none.
	Timeout time.Duration `yaml:"timeout"`
}

// ResilienceConfig tunes the circuit breakers in front of studio providers.
type ResilienceConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Providers.Live.Name == "" {
		cfg.Providers.Live.Name = DefaultLiveProvider
	}
	if cfg.Providers.LLM.Name == "" {
		cfg.Providers.LLM.Name = DefaultLLMProvider
	}

	l := &cfg.Live
	if l.Voice == "" {
		l.Voice = DefaultVoice
	}
	if l.Instructions == "" {
		l.Instructions = DefaultInstructions
	}
	if l.FrameSize == 0 {
		l.FrameSize = DefaultFrameSize
	}
	if l.SendQueue == 0 {
		l.SendQueue = DefaultSendQueue
	}
	if l.VolumeGain == 0 {
		l.VolumeGain = DefaultVolumeGain
	}

	s := &cfg.Studio
	if s.PodcastName == "" {
		s.PodcastName = DefaultPodcastName
	}
	if s.HostName == "" {
		s.HostName = DefaultHostName
	}
	if s.ToolName == "" {
		s.ToolName = DefaultToolName
	}
	if s.Intensity == 0 {
		s.Intensity = DefaultIntensity
	}
	if s.Sarcasm == 0 {
		s.Sarcasm = DefaultSarcasm
	}
}
