package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the built-in provider names per kind. [Validate]
// warns about names outside this list since a custom registry may add more.
var ValidProviderNames = map[string][]string{
	"live": {"gemini", "gemini-genai", "openai-realtime"},
	"llm":  {"gemini", "openai", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":  {"openai"},
}

// Load reads the YAML file at path and returns a validated [Config] with
// defaults applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r, expands ${VAR} references, applies
// defaults and validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(expandEnv(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with the value of VAR. Bare $VAR is left alone
// so prompts containing dollar signs survive.
func expandEnv(b []byte) []byte {
	return envRef.ReplaceAllFunc(b, func(m []byte) []byte {
		return []byte(os.Getenv(string(m[2 : len(m)-1])))
	})
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	validateProviderName("live", cfg.Providers.Live.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("llm", fb.Name)
	}

	l := cfg.Live
	if l.FrameSize < 0 {
		errs = append(errs, fmt.Errorf("live.frame_size %d must be positive", l.FrameSize))
	}
	if l.SendQueue < 0 {
		errs = append(errs, fmt.Errorf("live.send_queue %d must be positive", l.SendQueue))
	}
	if l.VolumeGain < 0 {
		errs = append(errs, fmt.Errorf("live.volume_gain %.2f must be positive", l.VolumeGain))
	}
	if l.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("live.connect_timeout %v must not be negative", l.ConnectTimeout))
	}

	s := cfg.Studio
	if s.Intensity != 0 && (s.Intensity < 1 || s.Intensity > 10) {
		errs = append(errs, fmt.Errorf("studio.intensity %d is out of range [1, 10]", s.Intensity))
	}
	if s.Sarcasm != 0 && (s.Sarcasm < 1 || s.Sarcasm > 10) {
		errs = append(errs, fmt.Errorf("studio.sarcasm %d is out of range [1, 10]", s.Sarcasm))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("studio.timeout %v must not be negative", s.Timeout))
	}

	r := cfg.Resilience
	if r.MaxFailures < 0 || r.HalfOpenMax < 0 || r.ResetTimeout < 0 {
		errs = append(errs, errors.New("resilience values must not be negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not a
// built-in name for kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("config: unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
