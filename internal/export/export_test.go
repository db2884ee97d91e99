package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pavelanni/examgen/internal/model"
)

func testExam() model.Exam {
	return model.Exam{
		Title: "Đề kiểm tra Hóa học",
		Metadata: model.Metadata{
			Duration:     "15 phút",
			NumQuestions: 9,
			Instructions: "Làm tất cả các câu.",
		},
		Questions: []model.Question{
			{
				ID:          4,
				Text:        "Thủ đô của Pháp?",
				Explanation: "Paris.",
				Body: model.MultipleChoice{
					Options: []string{"A. Paris", "B. London", "C. Rome", "D. Berlin"},
					Answer:  "A",
				},
			},
			{
				ID:          2,
				Text:        "Xét $x < 1$:",
				Explanation: "Chung.",
				Body: model.TrueFalse{SubQuestions: []model.SubQuestion{
					{ID: "a", Text: "x âm", Answer: model.True, Explanation: "Vì x < 0."},
					{ID: "b", Text: "x = 2", Answer: model.False},
				}},
			},
			{ID: 9, Text: "Điền: ___", Body: model.FillInTheBlank{Answer: "  Paris "}},
			{ID: 1, Text: "Trình bày.", Body: model.Essay{SuggestedAnswer: "Gợi ý."}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"json", FormatJSON, false},
		{" JSON ", FormatJSON, false},
		{"document", FormatDocument, false},
		{"docx", FormatDocument, false},
		{"interactive", FormatInteractive, false},
		{"HTML", FormatInteractive, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Fatalf("expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileNames(t *testing.T) {
	want := map[Format]string{
		FormatJSON:        "exam-data.json",
		FormatDocument:    "exam.docx",
		FormatInteractive: "interactive-exam.html",
	}
	for f, name := range want {
		if got := f.FileName(); got != name {
			t.Errorf("%s: got %q, want %q", f, got, name)
		}
	}
}

func TestJSONProjectorRoundTrip(t *testing.T) {
	exam := testExam()
	data, err := JSONProjector{}.Project(exam)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !bytes.HasSuffix(data, []byte("}\n")) {
		t.Errorf("expected trailing newline")
	}
	if !bytes.Contains(data, []byte("\n  \"metadata\": {")) {
		t.Errorf("expected 2-space indent:\n%s", data)
	}
	var got model.Exam
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, exam) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, exam)
	}
}

func TestJSONProjectorEmptyCollections(t *testing.T) {
	exam := model.Exam{Title: "T", Questions: []model.Question{
		{ID: 1, Text: "mc", Body: model.MultipleChoice{Options: []string{}, Answer: "A"}},
		{ID: 2, Text: "tf", Body: model.TrueFalse{SubQuestions: []model.SubQuestion{}}},
	}}
	data, err := JSONProjector{}.Project(exam)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	for _, want := range []string{`"options": []`, `"sub_questions": []`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("output missing %s:\n%s", want, data)
		}
	}
	var got model.Exam
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, exam) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, exam)
	}

	// nil collections are written as [] too.
	exam.Questions[0].Body = model.MultipleChoice{Answer: "A"}
	exam.Questions[1].Body = model.TrueFalse{}
	nilData, err := JSONProjector{}.Project(exam)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !bytes.Equal(nilData, data) {
		t.Errorf("nil and empty collections encode differently:\n%s\n%s", nilData, data)
	}
}

func runsText(p docParagraph) string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

func TestDocumentLayout(t *testing.T) {
	exam := testExam()
	doc := NewDocumentProjector(DefaultLabels()).layout(exam)

	if got := runsText(doc.Header[0]); got != exam.Title || !doc.Header[0].Center {
		t.Errorf("title paragraph: %q center=%v", got, doc.Header[0].Center)
	}
	if got, want := runsText(doc.Header[1]), "Thời gian làm bài: 15 phút | Số lượng câu hỏi: 9"; got != want {
		t.Errorf("meta line: got %q, want %q", got, want)
	}
	if !doc.Header[2].Runs[0].Italic {
		t.Errorf("instructions should be italic")
	}

	// Blocks follow the question sequence, not metadata.numQuestions.
	if len(doc.Body) != len(exam.Questions) || len(doc.Key) != len(exam.Questions) {
		t.Fatalf("got %d body and %d key blocks, want %d", len(doc.Body), len(doc.Key), len(exam.Questions))
	}
	for i, q := range exam.Questions {
		if doc.Body[i].QuestionID != q.ID || doc.Key[i].QuestionID != q.ID {
			t.Errorf("block %d: question order broken", i)
		}
	}
	if got := runsText(doc.Body[0].Paragraphs[0]); got != "Câu 1: Thủ đô của Pháp?" {
		t.Errorf("heading uses position, got %q", got)
	}
	if n := len(doc.Body[0].Paragraphs); n != 5 {
		t.Errorf("multiple choice block: got %d paragraphs, want 5", n)
	}
	if n := len(doc.Body[3].Paragraphs); n != 4 {
		t.Errorf("essay block: got %d paragraphs, want heading plus 3 blank lines", n)
	}

	if !doc.KeyHeader[0].PageBreak {
		t.Errorf("answer key must start with a page break")
	}
	if got := runsText(doc.KeyHeader[1]); got != "ĐÁP ÁN VÀ GIẢI THÍCH CHI TIẾT" {
		t.Errorf("answer key title: %q", got)
	}
}

func TestDocumentKeyTrueFalse(t *testing.T) {
	doc := NewDocumentProjector(DefaultLabels()).layout(testExam())
	var lines []string
	for _, p := range doc.Key[1].Paragraphs {
		lines = append(lines, runsText(p))
	}
	want := []string{
		"Câu 2:",
		"a) Đúng",
		"Giải thích: Vì x < 0.",
		"b) Sai",
		"Giải thích: Chung.",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("true/false key:\n got %q\nwant %q", lines, want)
	}
	sub := doc.Key[1].Paragraphs[2]
	if sub.Indent != indentKeyExtended || !sub.Runs[1].Italic {
		t.Errorf("sub explanation should be italic and indented further: %+v", sub)
	}
}

func TestDocumentSpacers(t *testing.T) {
	exam := testExam()
	doc := NewDocumentProjector(DefaultLabels()).layout(exam)
	ps := doc.paragraphs()

	want := len(doc.Header) + 1 + len(doc.KeyHeader) + 1
	for i := range exam.Questions {
		want += len(doc.Body[i].Paragraphs) + 1 + len(doc.Key[i].Paragraphs) + 1
	}
	if len(ps) != want {
		t.Fatalf("got %d paragraphs, want %d", len(ps), want)
	}
	last := ps[len(ps)-1]
	if len(last.Runs) != 0 {
		t.Errorf("document should end with a spacer")
	}
}

func readZipPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(b)
	}
	t.Fatalf("part %s missing", name)
	return ""
}

func TestDocumentPackage(t *testing.T) {
	data, err := NewDocumentProjector(DefaultLabels()).Project(testExam())
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	for _, part := range []string{"[Content_Types].xml", "_rels/.rels", "word/styles.xml"} {
		readZipPart(t, data, part)
	}
	xml := readZipPart(t, data, "word/document.xml")

	lastQuestion := strings.Index(xml, "Trình bày.")
	pageBreak := strings.Index(xml, `<w:br w:type="page">`)
	keyTitle := strings.Index(xml, "ĐÁP ÁN VÀ GIẢI THÍCH CHI TIẾT")
	if lastQuestion < 0 || pageBreak < 0 || keyTitle < 0 {
		t.Fatalf("document.xml missing content (question=%d break=%d key=%d)", lastQuestion, pageBreak, keyTitle)
	}
	if !(lastQuestion < pageBreak && pageBreak < keyTitle) {
		t.Errorf("sections out of order: question=%d break=%d key=%d", lastQuestion, pageBreak, keyTitle)
	}
	if !strings.Contains(xml, "x &lt; 1") {
		t.Errorf("text should be XML-escaped")
	}
}

func TestDocumentMissingBody(t *testing.T) {
	exam := testExam()
	exam.Questions[2].Body = nil
	if _, err := NewDocumentProjector(DefaultLabels()).Project(exam); !errors.Is(err, model.ErrMissingBody) {
		t.Fatalf("expected ErrMissingBody, got %v", err)
	}
}

func TestRenderDoesNotMutate(t *testing.T) {
	exam := testExam()
	before := exam.Clone()
	d := NewDispatcher(Options{Labels: DefaultLabels()})
	for _, f := range Formats() {
		if _, err := d.Render(exam, f); err != nil {
			t.Fatalf("Render %s: %v", f, err)
		}
	}
	if !reflect.DeepEqual(exam, before) {
		t.Errorf("exam modified by rendering")
	}
}

type failingSaver struct{ called bool }

func (s *failingSaver) Save(context.Context, Artifact) error {
	s.called = true
	return errors.New("disk full")
}

func TestExportErrors(t *testing.T) {
	d := NewDispatcher(Options{Labels: DefaultLabels()})

	if _, err := d.Export(context.Background(), testExam(), "pdf", &failingSaver{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	broken := testExam()
	broken.Questions[0].Body = nil
	saver := &failingSaver{}
	if _, err := d.Export(context.Background(), broken, FormatInteractive, saver); err == nil {
		t.Errorf("expected render error")
	}
	if saver.called {
		t.Errorf("saver must not run when rendering fails")
	}

	if _, err := d.Export(context.Background(), testExam(), FormatJSON, saver); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected save error, got %v", err)
	}
}

func TestDirSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	d := NewDispatcher(Options{Labels: DefaultLabels()})

	a, err := d.Export(context.Background(), testExam(), FormatJSON, DirSaver{Dir: dir})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "exam-data.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, a.Data) {
		t.Errorf("saved bytes differ from artifact")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the artifact, found %d entries", len(entries))
	}
}

func TestDirSaverFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	// A directory in the target's place makes the final rename fail.
	if err := os.Mkdir(filepath.Join(dir, "exam.docx"), 0o755); err != nil {
		t.Fatal(err)
	}
	err := DirSaver{Dir: dir}.Save(context.Background(), Artifact{FileName: "exam.docx", Data: []byte("x")})
	if err == nil {
		t.Fatalf("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary file left behind: %d entries", len(entries))
	}
}

func TestOptionValue(t *testing.T) {
	tests := map[string]string{
		"A. Paris":    "A",
		"B. 3.14":     "B",
		"no dot here": "no dot here",
	}
	for in, want := range tests {
		if got := OptionValue(in); got != want {
			t.Errorf("OptionValue(%q) = %q, want %q", in, got, want)
		}
	}
}
