// Package commands implements the cynicast CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrWong99/cynicast/internal/app"
	"github.com/MrWong99/cynicast/internal/config"
)

// version is stamped at build time with -ldflags "-X ...commands.version=v1.2.3".
var version = "dev"

var (
	configPath string
	envFile    string
	logLevel   string

	// levelVar is shared by every handler so a config reload can change the
	// level of a running process.
	levelVar = new(slog.LevelVar)

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cynicast",
	Short: "AI toolkit for a sarcastic tech podcast",
	Long: `cynicast produces a Spanish-language tech podcast with an AI co-host.

  live    talk to the AI executive producer through your microphone
  script  write an episode script about an AI tool
  lab     transcribe or sarcastically remix a recording
  serve   expose the studio over HTTP
  mcp     expose the studio as MCP tools on stdio

Configuration is read from cynicast.yaml when present; API keys may come
from the environment or a .env file.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cynicast.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override server.log_level (debug, info, warn, error)")

	rootCmd.AddCommand(liveCmd, scriptCmd, labCmd, serveCmd, mcpCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if err := loadEnv(envFile, flags.Changed("env-file")); err != nil {
		return err
	}
	c, err := loadConfig(configPath, flags.Changed("config"))
	if err != nil {
		return err
	}
	if logLevel != "" {
		lvl := config.LogLevel(strings.ToLower(logLevel))
		if !lvl.IsValid() {
			return fmt.Errorf("invalid --log-level %q", logLevel)
		}
		c.Server.LogLevel = lvl
	}
	applyEnvKeys(c, os.Getenv)

	levelVar.Set(c.Server.LogLevel.Level())
	slog.SetDefault(newLogger(os.Stderr))
	cfg = c
	return nil
}

// loadEnv loads a dotenv file without overriding variables already set. A
// missing file is only an error when the path was given explicitly.
func loadEnv(path string, explicit bool) error {
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, os.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("load env file: %w", err)
}

// loadConfig reads path. A missing default file yields the built-in defaults
// so the CLI works without any configuration.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	c, err := config.Load(path)
	if err == nil {
		return c, nil
	}
	if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return config.LoadFromReader(strings.NewReader(""))
}

// envKeys lists, per provider name prefix, the environment variables
// consulted when a provider entry has no API key.
var envKeys = []struct {
	prefix string
	vars   []string
}{
	{"gemini", []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"}},
	{"openai", []string{"OPENAI_API_KEY"}},
	{"anthropic", []string{"ANTHROPIC_API_KEY"}},
	{"deepseek", []string{"DEEPSEEK_API_KEY"}},
	{"mistral", []string{"MISTRAL_API_KEY"}},
	{"groq", []string{"GROQ_API_KEY"}},
}

// applyEnvKeys fills empty API keys from the conventional environment
// variables of each provider.
func applyEnvKeys(c *config.Config, getenv func(string) string) {
	fill := func(e *config.ProviderEntry) {
		if e.IsZero() || e.APIKey != "" {
			return
		}
		for _, k := range envKeys {
			if !strings.HasPrefix(e.Name, k.prefix) {
				continue
			}
			for _, v := range k.vars {
				if key := getenv(v); key != "" {
					e.APIKey = key
					return
				}
			}
		}
	}
	fill(&c.Providers.Live)
	fill(&c.Providers.LLM)
	fill(&c.Providers.STT)
	for i := range c.Providers.LLMFallbacks {
		fill(&c.Providers.LLMFallbacks[i])
	}
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

// newStudio builds the providers and the application for the studio
// commands. The live transport is not needed there and is never built.
func newStudio(ctx context.Context, opts ...app.Option) (*app.App, error) {
	c := *cfg
	c.Providers.Live = config.ProviderEntry{}

	log := slog.Default()
	reg := config.NewRegistry()
	app.RegisterBuiltinProviders(reg, log)
	ps, err := app.BuildProviders(ctx, &c, reg, log)
	if err != nil {
		return nil, err
	}
	return app.New(&c, ps, append([]app.Option{app.WithLogger(log)}, opts...)...)
}
