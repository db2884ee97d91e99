package model

import (
	"context"
	"time"
)

// AuthSession is a signed-in browser. ID is the digest of the cookie token.
type AuthSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// StoredExam is an exam kept in the workspace together with the request that produced it.
type StoredExam struct {
	ID        string             `json:"id"`
	Exam      Exam               `json:"exam"`
	Request   *GenerationRequest `json:"request,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ExportRecord logs one successful export of a stored exam.
type ExportRecord struct {
	ID        int64     `json:"id"`
	ExamID    string    `json:"exam_id"`
	Format    string    `json:"format"`
	FileName  string    `json:"file_name"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	Lang              string        // UI and export language (vi, en)
	BasePath          string        // URL prefix for sub-path deployments (e.g. "/exams")
	MathJaxURL        string        // math typesetting engine loaded by the interactive page
	SecureCookies     bool          // Set Secure flag on cookies (disable for local dev)
	PasswordRequired  bool          // Require sign-in before using the UI
	SessionTTL        time.Duration // Lifetime of a sign-in
	GenerationTimeout time.Duration // Upper bound for one model call
	CORSOrigins       []string      // Allowed origins for /api routes
}
