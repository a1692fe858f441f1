package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/cynicast/internal/config"
	"github.com/MrWong99/cynicast/internal/resilience"
	transport "github.com/MrWong99/cynicast/pkg/provider/live"
	livegemini "github.com/MrWong99/cynicast/pkg/provider/live/gemini"
	"github.com/MrWong99/cynicast/pkg/provider/live/genailive"
	liveopenai "github.com/MrWong99/cynicast/pkg/provider/live/openai"
	"github.com/MrWong99/cynicast/pkg/provider/llm"
	"github.com/MrWong99/cynicast/pkg/provider/llm/anyllm"
	llmgemini "github.com/MrWong99/cynicast/pkg/provider/llm/gemini"
	llmopenai "github.com/MrWong99/cynicast/pkg/provider/llm/openai"
	"github.com/MrWong99/cynicast/pkg/provider/stt"
	sttopenai "github.com/MrWong99/cynicast/pkg/provider/stt/openai"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured.
type Providers struct {
	Live transport.Provider
	LLM  llm.Provider
	STT  stt.Provider

	// LLMName labels studio metrics. Empty means "llm".
	LLMName string
}

// anyLLMNames are the completion backends served through any-llm-go.
var anyLLMNames = []string{"anthropic", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

// RegisterBuiltinProviders wires every provider that ships with cynicast
// into reg.
func RegisterBuiltinProviders(reg *config.Registry, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}

	// ── Live ──────────────────────────────────────────────────────────────────

	reg.RegisterLive("gemini", func(_ context.Context, e config.ProviderEntry) (transport.Provider, error) {
		opts := []livegemini.Option{livegemini.WithLogger(log)}
		if e.Model != "" {
			opts = append(opts, livegemini.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, livegemini.WithBaseURL(e.BaseURL))
		}
		return livegemini.New(e.APIKey, opts...), nil
	})

	reg.RegisterLive("gemini-genai", func(ctx context.Context, e config.ProviderEntry) (transport.Provider, error) {
		opts := []genailive.Option{genailive.WithLogger(log)}
		if e.Model != "" {
			opts = append(opts, genailive.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, genailive.WithBaseURL(e.BaseURL))
		}
		return genailive.New(ctx, e.APIKey, opts...)
	})

	reg.RegisterLive("openai-realtime", func(_ context.Context, e config.ProviderEntry) (transport.Provider, error) {
		opts := []liveopenai.Option{liveopenai.WithLogger(log)}
		if e.Model != "" {
			opts = append(opts, liveopenai.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, liveopenai.WithBaseURL(e.BaseURL))
		}
		return liveopenai.New(e.APIKey, opts...), nil
	})

	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("gemini", func(ctx context.Context, e config.ProviderEntry) (llm.Provider, error) {
		var opts []llmgemini.Option
		if e.Model != "" {
			opts = append(opts, llmgemini.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, llmgemini.WithBaseURL(e.BaseURL))
		}
		return llmgemini.New(ctx, e.APIKey, opts...)
	})

	reg.RegisterLLM("openai", func(_ context.Context, e config.ProviderEntry) (llm.Provider, error) {
		var opts []llmopenai.Option
		if e.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(e.BaseURL))
		}
		return llmopenai.New(e.APIKey, e.Model, opts...)
	})

	for _, name := range anyLLMNames {
		reg.RegisterLLM(name, func(_ context.Context, e config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if e.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(e.APIKey))
			}
			if e.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
			}
			return anyllm.New(name, e.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(_ context.Context, e config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if e.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
		}
		return anyllm.New("ollama", e.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(_ context.Context, e config.ProviderEntry) (stt.Provider, error) {
		var opts []sttopenai.Option
		if e.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(e.BaseURL))
		}
		return sttopenai.New(e.APIKey, e.Model, opts...)
	})

	log.Debug("registered providers",
		"live", reg.LiveNames(),
		"llm", reg.LLMNames(),
		"stt", reg.STTNames(),
	)
}

// BuildProviders instantiates the providers named in cfg. The studio LLM is
// wrapped in a [resilience.LLMFallback] so a circuit breaker guards it even
// without fallbacks. Unset slots stay nil.
func BuildProviders(ctx context.Context, cfg *config.Config, reg *config.Registry, log *slog.Logger) (*Providers, error) {
	if log == nil {
		log = slog.Default()
	}
	ps := &Providers{}

	if !cfg.Providers.Live.IsZero() {
		p, err := reg.CreateLive(ctx, cfg.Providers.Live)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		ps.Live = p
		log.Info("provider created", "kind", "live", "name", cfg.Providers.Live.Name)
	}

	if !cfg.Providers.LLM.IsZero() {
		p, err := buildLLM(ctx, cfg, reg, log)
		if err != nil {
			return nil, err
		}
		ps.LLM = p
		ps.LLMName = cfg.Providers.LLM.Name
	}

	if !cfg.Providers.STT.IsZero() {
		p, err := reg.CreateSTT(ctx, cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		fb := resilience.NewSTTFallback(p, cfg.Providers.STT.Name, fallbackConfig(cfg, log))
		ps.STT = fb
		log.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)
	}

	return ps, nil
}

func buildLLM(ctx context.Context, cfg *config.Config, reg *config.Registry, log *slog.Logger) (llm.Provider, error) {
	primary, err := reg.CreateLLM(ctx, cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	fb := resilience.NewLLMFallback(primary, cfg.Providers.LLM.Name, fallbackConfig(cfg, log))
	log.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)

	for _, e := range cfg.Providers.LLMFallbacks {
		p, err := reg.CreateLLM(ctx, e)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			log.Warn("llm fallback not registered, skipping", "name", e.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("app: fallback: %w", err)
		}
		fb.AddFallback(e.Name, p)
		log.Info("provider created", "kind", "llm_fallback", "name", e.Name)
	}
	return fb, nil
}

func fallbackConfig(cfg *config.Config, log *slog.Logger) resilience.FallbackConfig {
	r := cfg.Resilience
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  r.MaxFailures,
			ResetTimeout: r.ResetTimeout,
			HalfOpenMax:  r.HalfOpenMax,
			Logger:       log,
		},
	}
}
