// Package export projects an exam into its downloadable artifacts:
// a JSON data file, a DOCX page document and a self-grading HTML page.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavelanni/examgen/internal/model"
)

// Format names one export target.
type Format string

const (
	FormatJSON        Format = "json"
	FormatDocument    Format = "document"
	FormatInteractive Format = "interactive"
)

// DefaultMathJaxURL is the math typesetting engine referenced by interactive pages.
const DefaultMathJaxURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"

// ErrUnknownFormat is returned for a format name that has no projector.
var ErrUnknownFormat = errors.New("unknown export format")

var formats = []Format{FormatJSON, FormatDocument, FormatInteractive}

// Formats lists the supported formats in menu order.
func Formats() []Format {
	return append([]Format(nil), formats...)
}

// ParseFormat maps a user-supplied name (case-insensitive, "docx" and "html" accepted) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "document", "docx":
		return FormatDocument, nil
	case "interactive", "html":
		return FormatInteractive, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FileName is the name the artifact is saved under.
func (f Format) FileName() string {
	switch f {
	case FormatJSON:
		return "exam-data.json"
	case FormatDocument:
		return "exam.docx"
	case FormatInteractive:
		return "interactive-exam.html"
	}
	return ""
}

// ContentType is the MIME type of the artifact.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatDocument:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatInteractive:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// Artifact is one rendered export, ready to be saved.
type Artifact struct {
	Format      Format
	FileName    string
	ContentType string
	Data        []byte
}

// Projector renders an exam into one format. Implementations must not modify the exam.
type Projector interface {
	Project(exam model.Exam) ([]byte, error)
}

// Saver persists a finished artifact.
type Saver interface {
	Save(ctx context.Context, a Artifact) error
}

// Options carries the capabilities injected into the projectors.
type Options struct {
	Labels     Labels
	MathJaxURL string
}

// Dispatcher routes an export request to the projector for the requested format.
type Dispatcher struct {
	projectors map[Format]Projector
}

// NewDispatcher builds a dispatcher with the three built-in projectors.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.MathJaxURL == "" {
		opts.MathJaxURL = DefaultMathJaxURL
	}
	return &Dispatcher{
		projectors: map[Format]Projector{
			FormatJSON:        JSONProjector{},
			FormatDocument:    NewDocumentProjector(opts.Labels),
			FormatInteractive: NewInteractiveProjector(opts.Labels, opts.MathJaxURL),
		},
	}
}

// Render projects a private copy of exam into format f.
func (d *Dispatcher) Render(exam model.Exam, f Format) (Artifact, error) {
	p, ok := d.projectors[f]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	data, err := p.Project(exam.Clone())
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", f, err)
	}
	return Artifact{
		Format:      f,
		FileName:    f.FileName(),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

// Export renders exam into format f and hands the artifact to saver.
// Nothing is saved when rendering fails.
func (d *Dispatcher) Export(ctx context.Context, exam model.Exam, f Format, saver Saver) (Artifact, error) {
	a, err := d.Render(exam, f)
	if err != nil {
		slog.Error("export failed", "format", f, "error", err)
		return Artifact{}, err
	}
	if err := saver.Save(ctx, a); err != nil {
		return Artifact{}, fmt.Errorf("save %s: %w", a.FileName, err)
	}
	slog.Info("exported exam", "format", f, "file", a.FileName, "bytes", len(a.Data))
	return a, nil
}

// DirSaver writes artifacts into a directory. Files appear atomically:
// data goes to a temporary file that is renamed only after a complete write.
type DirSaver struct {
	Dir string
}

// Save implements Saver.
func (s DirSaver) Save(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+a.FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", a.FileName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", a.FileName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", a.FileName, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, a.FileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", a.FileName, err)
	}
	return nil
}
