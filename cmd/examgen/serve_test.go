package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/examgen/internal/handler"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/store"
)

type noGenerator struct{}

func (noGenerator) Generate(context.Context, model.GenerationRequest) (model.Exam, error) {
	return model.Exam{}, context.Canceled
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "examgen.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedPassword(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)

	if err := seedPassword(ctx, db, ""); err == nil {
		t.Fatal("seedPassword without a password: want error")
	}
	if err := seedPassword(ctx, db, "first"); err != nil {
		t.Fatalf("seedPassword: %v", err)
	}
	if err := seedPassword(ctx, db, "second"); err != nil {
		t.Fatalf("seedPassword again: %v", err)
	}
	hash, err := db.PasswordHash(ctx)
	if err != nil {
		t.Fatalf("PasswordHash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("first")) != nil {
		t.Error("the first password must stay in effect")
	}
}

func TestRouterBasePath(t *testing.T) {
	if err := appI18n.Init("vi"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	h, err := handler.New(openStore(t), noGenerator{}, model.AppConfig{BasePath: "/examgen"})
	if err != nil {
		t.Fatalf("handler.New: %v", err)
	}
	r := newRouter(h, "vi", "/examgen")

	tests := []struct {
		path     string
		wantCode int
		wantLoc  string
	}{
		{"/examgen", http.StatusMovedPermanently, "/examgen/"},
		{"/examgen/", http.StatusOK, ""},
		{"/examgen/healthz", http.StatusOK, ""},
		{"/", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantLoc != "" && rec.Header().Get("Location") != tt.wantLoc {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLoc)
			}
		})
	}
}
