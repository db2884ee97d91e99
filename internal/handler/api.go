package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examgen/internal/export"
	"github.com/pavelanni/examgen/internal/model"
)

const maxExamBytes = 5 << 20

// handleAPIExport renders an exam posted as JSON without storing it.
func (h *Handler) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxExamBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	exam, err := model.DecodeExam(data, "json")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	a, err := h.dispatcher(r.Context()).Render(exam, format)
	if err != nil {
		slog.Error("api export failed", "format", format, "error", err)
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	_, _ = w.Write(a.Data)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
