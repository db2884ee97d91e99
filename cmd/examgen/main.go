package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/llm"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examgen",
		Short: "Exam generator: generate exams with an LLM and export them as JSON, DOCX or self-grading HTML",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), exportCmd(), showCmd(), inspectCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examgen --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addLangFlag(f *pflag.FlagSet) {
	f.StringP("lang", "l", "vi", "UI, prompt and export language (vi, en)")
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM (or set EXAMGEN_LLM_KEY)")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Float32("temperature", 0.7, "Sampling temperature")
}

// setupLogging installs the default slog handler from the log-level and log-format settings.
func setupLogging(v *viper.Viper) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// commandConfig loads the command's settings and configures logging from them.
func commandConfig(cmd *cobra.Command) *viper.Viper {
	v := viperForCmd(cmd)
	setupLogging(v)
	return v
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examgen")
	v.AddConfigPath("/etc/examgen")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// initLang loads the translation bundle with lang as the fallback language.
func initLang(v *viper.Viper) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(v.GetString("lang")))
	if err := appI18n.Init(lang); err != nil {
		return "", fmt.Errorf("init i18n: %w", err)
	}
	return lang, nil
}

func newLLMClient(v *viper.Viper, lang string) (*llm.Client, error) {
	client, err := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		llm.WithLanguage(lang),
		llm.WithTemperature(float32(v.GetFloat64("temperature"))),
	)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	return client, nil
}
