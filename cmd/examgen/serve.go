package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/handler"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and export API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examgen.db", "SQLite database path")
	addLLMFlags(f)
	addLangFlag(f)
	f.Bool("llm-check", true, "Check at startup that the LLM endpoint serves the model")
	f.Duration("generation-timeout", 3*time.Minute, "Upper bound for one exam generation")
	f.String("mathjax-url", export.DefaultMathJaxURL, "MathJax script URL used by pages and interactive exports")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /examgen)")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed origins for /api routes")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Bool("password-required", false, "Require a password before using the UI")
	f.String("password", "", "UI password; stored hashed on first start (or set EXAMGEN_PASSWORD)")
	f.Duration("session-ttl", store.DefaultSessionTTL, "How long a sign-in lasts")
	addLogFlags(f)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := commandConfig(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if n, err := db.PurgeExpiredSessions(ctx); err != nil {
		slog.Warn("failed to purge expired sessions", "error", err)
	} else if n > 0 {
		slog.Debug("purged expired sessions", "count", n)
	}
	passwordRequired := v.GetBool("password-required")
	if passwordRequired {
		if err := seedPassword(ctx, db, v.GetString("password")); err != nil {
			return fmt.Errorf("seed password: %w", err)
		}
	}

	lang, err := initLang(v)
	if err != nil {
		return err
	}

	llmClient, err := newLLMClient(v, lang)
	if err != nil {
		return err
	}
	if v.GetBool("llm-check") {
		if err := llmClient.Ping(ctx); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	appCfg := model.AppConfig{
		Lang:              lang,
		BasePath:          basePath,
		MathJaxURL:        v.GetString("mathjax-url"),
		SecureCookies:     v.GetBool("secure-cookies"),
		PasswordRequired:  passwordRequired,
		SessionTTL:        v.GetDuration("session-ttl"),
		GenerationTimeout: v.GetDuration("generation-timeout"),
		CORSOrigins:       v.GetStringSlice("cors-origins"),
	}

	h, err := handler.New(db, llmClient, appCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := newRouter(h, lang, basePath)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"base_path", basePath,
		"password_required", passwordRequired,
		"generation_timeout", appCfg.GenerationTimeout,
	)
	return http.ListenAndServe(addr, r)
}

// newRouter mounts the handler's routes, under basePath when one is set.
func newRouter(h *handler.Handler, lang, basePath string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath == "" {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
		return r
	}
	r.Route(basePath, func(sub chi.Router) {
		sub.Use(h.BasePathMiddleware)
		h.Routes(sub)
	})
	r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
	})
	return r
}

// seedPassword stores the UI password hash the first time the server starts with one.
func seedPassword(ctx context.Context, db *store.Store, password string) error {
	hash, err := db.PasswordHash(ctx)
	if err != nil {
		return err
	}
	if hash != "" {
		if password != "" {
			slog.Info("password already set; ignoring --password")
		}
		return nil
	}

	if password == "" {
		return fmt.Errorf("password is required: set --password flag or EXAMGEN_PASSWORD env var")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := db.SetPasswordHash(ctx, string(newHash)); err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}

	slog.Info("seeded UI password")
	return nil
}
