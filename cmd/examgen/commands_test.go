package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pavelanni/examgen/internal/model"
)

func writeExamFile(t *testing.T, dir, name string) string {
	t.Helper()
	exam := model.Exam{
		Title:    "Kiểm tra nhanh",
		Metadata: model.Metadata{Duration: "3 phút", NumQuestions: 2, Instructions: "Chọn đáp án."},
		Questions: []model.Question{
			{ID: 1, Text: "1 + 1 = ?", Body: model.MultipleChoice{Options: []string{"A. 1", "B. 2"}, Answer: "B"}},
			{ID: 2, Text: "Xét:", Body: model.TrueFalse{SubQuestions: []model.SubQuestion{
				{ID: "a", Text: "2 > 1", Answer: model.True},
				{ID: "b", Text: "2 < 1", Answer: model.False},
			}}},
		},
	}
	data, err := model.EncodeExam(exam, filepath.Ext(name))
	if err != nil {
		t.Fatalf("EncodeExam: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write exam: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExportThenInspect(t *testing.T) {
	dir := t.TempDir()
	examPath := writeExamFile(t, dir, "exam.yaml")
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "export", examPath, "--format", "interactive,docx", "--out-dir", outDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	wantPaths := filepath.Join(outDir, "interactive-exam.html") + "\n" + filepath.Join(outDir, "exam.docx") + "\n"
	if out != wantPaths {
		t.Errorf("export output:\n%s\nwant:\n%s", out, wantPaths)
	}
	for _, name := range []string{"interactive-exam.html", "exam.docx"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	page := filepath.Join(outDir, "interactive-exam.html")
	out, err = execute(t, "inspect", page, "--log-level", "error")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "scorable units: 3") {
		t.Errorf("inspect output:\n%s\nwant 3 scorable units", out)
	}

	out, err = execute(t, "inspect", page, "--answer", "question-1=B", "--answer", "question-2-a=Sai", "--log-level", "error")
	if err != nil {
		t.Fatalf("inspect with answers: %v", err)
	}
	if !strings.Contains(out, "Kết quả: 1 / 3 câu hỏi có thể chấm điểm.") {
		t.Errorf("inspect output:\n%s\nwant score 1 / 3", out)
	}

	if _, err := execute(t, "inspect", page, "--answer", "question-9=A", "--log-level", "error"); err == nil {
		t.Error("inspect with an unknown unit: want error")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	examPath := writeExamFile(t, dir, "exam.json")

	if _, err := execute(t, "export", examPath, "--format", "pdf", "--out-dir", dir, "--log-level", "error"); err == nil {
		t.Fatal("export --format pdf: want error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after a failed export, want only the exam file", len(entries))
	}
}

func TestShow(t *testing.T) {
	dir := t.TempDir()
	examPath := writeExamFile(t, dir, "exam.json")

	out, err := execute(t, "show", examPath, "--answers", "--no-color", "--lang", "en", "--log-level", "error")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Kiểm tra nhanh", "1 + 1 = ?", "[Sai]"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}
