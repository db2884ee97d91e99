package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/handler/views"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/store"
)

// Generator produces an exam from a generation request.
type Generator interface {
	Generate(ctx context.Context, req model.GenerationRequest) (model.Exam, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	gen    Generator
	config model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, gen Generator, cfg model.AppConfig) (*Handler, error) {
	if s == nil {
		return nil, errors.New("handler: store is required")
	}
	if gen == nil {
		return nil, errors.New("handler: generator is required")
	}
	if cfg.MathJaxURL == "" {
		cfg.MathJaxURL = export.DefaultMathJaxURL
	}
	return &Handler{store: s, gen: gen, config: cfg}, nil
}

// BasePathMiddleware makes the deployment prefix available to the views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// path prefixes an app path with the base path for redirects.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.config.CORSOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
		r.Post("/export/{format}", h.handleAPIExport)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			if h.config.PasswordRequired {
				r.Use(h.requireAuth)
			}
			r.Get("/", h.handleIndex)
			r.Post("/exams", h.handleGenerate)
			r.Post("/exams/import", h.handleImport)
			r.Route("/exams/{examID}", func(r chi.Router) {
				r.Get("/", h.handleExamPage)
				r.Get("/questions/{questionID}/edit", h.handleEditQuestionPage)
				r.Post("/questions/{questionID}", h.handleUpdateQuestion)
				r.Get("/export/{format}", h.handleExport)
				r.Post("/delete", h.handleDelete)
			})
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.ExamCount(r.Context()); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (h *Handler) chrome(withMath bool) views.Chrome {
	c := views.Chrome{ShowLogout: h.config.PasswordRequired}
	if withMath {
		c.MathJaxURL = h.config.MathJaxURL
	}
	return c
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, status int, form model.GenerationRequest, errMsg string) {
	exams, err := h.store.ListExams(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render(w, r, status, views.IndexPage(views.IndexData{
		Chrome: h.chrome(false),
		Form:   form,
		Exams:  exams,
		Error:  errMsg,
	}))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, model.DefaultGenerationRequest(), "")
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := parseGenerationForm(r)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		h.renderIndex(w, r, http.StatusUnprocessableEntity, req,
			appI18n.Td(r.Context(), "GenerationFailed", map[string]any{"Error": err.Error()}))
		return
	}

	ctx := r.Context()
	if h.config.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.GenerationTimeout)
		defer cancel()
	}
	exam, err := h.gen.Generate(ctx, req)
	if err != nil {
		h.renderIndex(w, r, http.StatusBadGateway, req,
			appI18n.Td(r.Context(), "GenerationFailed", map[string]any{"Error": err.Error()}))
		return
	}

	stored, err := h.store.SaveExam(r.Context(), exam, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("exam generated", "id", stored.ID, "questions", len(exam.Questions))
	http.Redirect(w, r, h.path("/exams/"+stored.ID), http.StatusSeeOther)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	exam, err := parseImportForm(r)
	if err != nil {
		h.renderIndex(w, r, http.StatusUnprocessableEntity, model.DefaultGenerationRequest(),
			appI18n.Td(r.Context(), "ImportFailed", map[string]any{"Error": err.Error()}))
		return
	}
	stored, err := h.store.SaveExam(r.Context(), exam, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("exam imported", "id", stored.ID, "questions", len(exam.Questions))
	http.Redirect(w, r, h.path("/exams/"+stored.ID), http.StatusSeeOther)
}

// loadExam fetches the exam named in the URL, writing the error response when it fails.
func (h *Handler) loadExam(w http.ResponseWriter, r *http.Request) (model.StoredExam, bool) {
	stored, err := h.store.GetExam(r.Context(), chi.URLParam(r, "examID"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return model.StoredExam{}, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return model.StoredExam{}, false
	}
	return stored, true
}

func (h *Handler) handleExamPage(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	exports, err := h.store.ListExports(r.Context(), stored.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render(w, r, http.StatusOK, views.ExamPage(views.ExamData{
		Chrome:  h.chrome(true),
		Stored:  stored,
		Exports: exports,
		Labels:  appI18n.ExportLabels(r.Context()),
	}))
}

func (h *Handler) lookupQuestion(w http.ResponseWriter, r *http.Request, stored model.StoredExam) (model.Question, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "questionID"))
	if err != nil {
		http.Error(w, "invalid question ID", http.StatusBadRequest)
		return model.Question{}, false
	}
	q, ok := stored.Exam.Question(id)
	if !ok {
		http.NotFound(w, r)
		return model.Question{}, false
	}
	return q, true
}

func (h *Handler) handleEditQuestionPage(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	q, ok := h.lookupQuestion(w, r, stored)
	if !ok {
		return
	}
	render(w, r, http.StatusOK, views.EditQuestionPage(views.EditData{
		Chrome:   h.chrome(false),
		ExamID:   stored.ID,
		Question: q,
	}))
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	q, ok := h.lookupQuestion(w, r, stored)
	if !ok {
		return
	}

	edited, err := parseQuestionForm(r, q)
	if err != nil {
		render(w, r, http.StatusUnprocessableEntity, views.EditQuestionPage(views.EditData{
			Chrome:   h.chrome(false),
			ExamID:   stored.ID,
			Question: edited,
			Error:    appI18n.Td(r.Context(), "InvalidQuestion", map[string]any{"Error": err.Error()}),
		}))
		return
	}

	if _, err := h.store.UpdateQuestion(r.Context(), stored.ID, edited); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("question updated", "exam", stored.ID, "question", edited.ID)
	http.Redirect(w, r, h.path("/exams/"+stored.ID), http.StatusSeeOther)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	a, err := h.dispatcher(r.Context()).Export(r.Context(), stored.Exam, format, responseSaver{w: w})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// The download has already been sent.
	if _, err := h.store.RecordExport(r.Context(), model.ExportRecord{
		ExamID:   stored.ID,
		Format:   string(a.Format),
		FileName: a.FileName,
		Size:     len(a.Data),
	}); err != nil {
		slog.Error("failed to record export", "exam", stored.ID, "error", err)
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "examID")
	if err := h.store.DeleteExam(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("exam deleted", "id", id)
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) dispatcher(ctx context.Context) *export.Dispatcher {
	return export.NewDispatcher(export.Options{
		Labels:     appI18n.ExportLabels(ctx),
		MathJaxURL: h.config.MathJaxURL,
	})
}

// responseSaver streams an artifact to the client as a download.
type responseSaver struct {
	w http.ResponseWriter
}

func (s responseSaver) Save(_ context.Context, a export.Artifact) error {
	s.w.Header().Set("Content-Type", a.ContentType)
	s.w.Header().Set("Content-Disposition", `attachment; filename="`+a.FileName+`"`)
	s.w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	_, err := s.w.Write(a.Data)
	return err
}
