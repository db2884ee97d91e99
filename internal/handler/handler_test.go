package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/llm"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/store"
)

const testToken = "test-csrf-token"

type fakeGenerator struct {
	mu    sync.Mutex
	exam  model.Exam
	err   error
	block bool
	calls []model.GenerationRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req model.GenerationRequest) (model.Exam, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return model.Exam{}, ctx.Err()
	}
	return f.exam, f.err
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sampleExam() model.Exam {
	return model.Exam{
		Title:    "Đề kiểm tra Hóa học",
		Metadata: model.Metadata{Duration: "3 phút", NumQuestions: 2, Instructions: "Chọn đáp án đúng."},
		Questions: []model.Question{
			{ID: 1, Text: "Kim loại nào nhẹ nhất?", Explanation: "Li có khối lượng riêng nhỏ nhất.", Body: model.MultipleChoice{
				Options: []string{"A. Na", "B. Li", "C. K", "D. Cs"}, Answer: "B",
			}},
			{ID: 2, Text: "Xét các phát biểu:", Body: model.TrueFalse{SubQuestions: []model.SubQuestion{
				{ID: "a", Text: "Fe là kim loại.", Answer: model.True},
				{ID: "b", Text: "O2 là kim loại.", Answer: model.False},
			}}},
		},
	}
}

type testEnv struct {
	t      *testing.T
	store  *store.Store
	gen    *fakeGenerator
	router http.Handler
	cfg    model.AppConfig
}

func newTestEnv(t *testing.T, cfg model.AppConfig) *testEnv {
	t.Helper()
	gen := &fakeGenerator{exam: sampleExam()}
	env := newTestEnvWith(t, cfg, gen)
	env.gen = gen
	return env
}

// newTestEnvWith serves the routes with gen as the exam generator.
func newTestEnvWith(t *testing.T, cfg model.AppConfig, gen Generator) *testEnv {
	t.Helper()
	if err := appI18n.Init("vi"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h, err := New(s, gen, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("vi"))
	if cfg.BasePath != "" {
		r.Route(cfg.BasePath, func(r chi.Router) {
			r.Use(h.BasePathMiddleware)
			h.Routes(r)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}
	return &testEnv{t: t, store: s, router: r, cfg: cfg}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

// postForm submits form with a matching CSRF cookie and field.
func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", testToken)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testToken})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

func (e *testEnv) saveExam() model.StoredExam {
	e.t.Helper()
	stored, err := e.store.SaveExam(context.Background(), sampleExam(), nil)
	if err != nil {
		e.t.Fatalf("SaveExam: %v", err)
	}
	return stored
}

func generationForm() url.Values {
	return url.Values{
		"subject":             {"Hóa học"},
		"grade":               {"Lớp 12"},
		"difficulty":          {"medium"},
		"questionType":        {"multiple_choice"},
		"numQuestions":        {"2"},
		"includeExplanations": {"on"},
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})
	env.saveExam()

	rec := env.get("/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="subject"`, `name="csrf_token"`, `action="/exams/import"`, "Đề kiểm tra Hóa học"} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}
	var csrfSet bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName && c.Value != "" {
			csrfSet = true
		}
	}
	if !csrfSet {
		t.Error("GET / did not set a CSRF cookie")
	}
}

func TestLanguagePicker(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})

	body := env.get("/").Body.String()
	for _, want := range []string{"<strong>VI</strong>", `href="?lang=en"`, "Trình tạo đề thi"} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}

	rec := env.get("/?lang=en")
	body = rec.Body.String()
	for _, want := range []string{"<strong>EN</strong>", `href="?lang=vi"`, "Exam Generator"} {
		if !strings.Contains(body, want) {
			t.Errorf("English index page missing %q", want)
		}
	}
	var remembered *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == appI18n.LangCookieName {
			remembered = c
		}
	}
	if remembered == nil || remembered.Value != "en" {
		t.Fatalf("language choice not remembered: %+v", remembered)
	}
	if body := env.get("/", remembered).Body.String(); !strings.Contains(body, "Exam Generator") {
		t.Errorf("follow-up request ignored the remembered language")
	}
}

func TestGenerateSavesAndRedirects(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})

	rec := env.postForm("/exams", generationForm())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
	exams, err := env.store.ListExams(context.Background())
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 1 {
		t.Fatalf("stored %d exams, want 1", len(exams))
	}
	if loc := rec.Header().Get("Location"); loc != "/exams/"+exams[0].ID {
		t.Errorf("Location = %q, want /exams/%s", loc, exams[0].ID)
	}

	got := env.gen.calls[0]
	if got.Subject != "Hóa học" || got.NumQuestions != 2 || got.Randomize || !got.IncludeExplanations {
		t.Errorf("generator got %+v", got)
	}
	stored, err := env.store.GetExam(context.Background(), exams[0].ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if stored.Request == nil || stored.Request.Grade != "Lớp 12" {
		t.Errorf("stored request = %+v, want the submitted form", stored.Request)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(url.Values)
		genErr    error
		block     bool
		wantCode  int
		wantCalls int
	}{
		{
			name:     "too many questions",
			mutate:   func(f url.Values) { f.Set("numQuestions", "51") },
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing subject",
			mutate:   func(f url.Values) { f.Set("subject", " ") },
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "unknown difficulty",
			mutate:   func(f url.Values) { f.Set("difficulty", "extreme") },
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "count is not a number",
			mutate:   func(f url.Values) { f.Set("numQuestions", "ba") },
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:      "model failure",
			genErr:    errors.New("upstream unavailable"),
			wantCode:  http.StatusBadGateway,
			wantCalls: 1,
		},
		{
			name:      "timeout",
			block:     true,
			wantCode:  http.StatusBadGateway,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, model.AppConfig{GenerationTimeout: 20 * time.Millisecond})
			env.gen.err = tt.genErr
			env.gen.block = tt.block

			form := generationForm()
			if tt.mutate != nil {
				tt.mutate(form)
			}
			rec := env.postForm("/exams", form)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), "Không thể tạo đề thi") {
				t.Error("response does not show the generation error")
			}
			if n := env.gen.callCount(); n != tt.wantCalls {
				t.Errorf("generator called %d times, want %d", n, tt.wantCalls)
			}
			if n, _ := env.store.ExamCount(context.Background()); n != 0 {
				t.Errorf("stored %d exams after a failure, want 0", n)
			}
		})
	}
}

func TestGenerationFailureLoggedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()
	client, err := llm.New(srv.URL, "test-key", "test-model")
	if err != nil {
		t.Fatalf("llm.New: %v", err)
	}

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	env := newTestEnvWith(t, model.AppConfig{}, client)
	rec := env.postForm("/exams", generationForm())
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if n := strings.Count(logs.String(), "exam generation failed"); n != 1 {
		t.Errorf("generation failure logged %d times, want once:\n%s", n, logs.String())
	}
}

func TestCSRFRequired(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})

	tests := []struct {
		name   string
		cookie string
		field  string
	}{
		{"no cookie", "", testToken},
		{"no field", testToken, ""},
		{"mismatch", testToken, "other-token-value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := generationForm()
			if tt.field != "" {
				form.Set("csrf_token", tt.field)
			}
			req := httptest.NewRequest(http.MethodPost, "/exams", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			rec := env.do(req)
			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403", rec.Code)
			}
		})
	}
	if n := env.gen.callCount(); n != 0 {
		t.Errorf("generator called %d times, want 0", n)
	}
}

func TestExamPage(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})
	stored := env.saveExam()

	rec := env.get("/exams/" + stored.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Kim loại nào nhẹ nhất?", "Li có khối lượng riêng nhỏ nhất.", "/export/document", "MathJax-script"} {
		if !strings.Contains(body, want) {
			t.Errorf("exam page missing %q", want)
		}
	}

	if rec := env.get("/exams/does-not-exist"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown exam: status = %d, want 404", rec.Code)
	}
}

func TestExportDownload(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})
	stored := env.saveExam()

	tests := []struct {
		format      string
		wantType    string
		wantFile    string
		wantContent string
	}{
		{"json", "application/json", "exam-data.json", `"title": "Đề kiểm tra Hóa học"`},
		{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "exam.docx", "PK"},
		{"interactive", "text/html; charset=utf-8", "interactive-exam.html", `id="grading-config"`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			rec := env.get("/exams/" + stored.ID + "/export/" + tt.format)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, tt.wantFile) {
				t.Errorf("Content-Disposition = %q, want file %q", got, tt.wantFile)
			}
			if !strings.Contains(rec.Body.String(), tt.wantContent) {
				t.Errorf("body does not contain %q", tt.wantContent)
			}
		})
	}

	exports, err := env.store.ListExports(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(exports) != len(tests) {
		t.Errorf("export log has %d rows, want %d", len(exports), len(tests))
	}

	if rec := env.get("/exams/" + stored.ID + "/export/pdf"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown format: status = %d, want 404", rec.Code)
	}
}

func TestUpdateQuestion(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})
	stored := env.saveExam()
	base := "/exams/" + stored.ID

	if rec := env.get(base + "/questions/1/edit"); rec.Code != http.StatusOK {
		t.Fatalf("edit page status = %d, want 200", rec.Code)
	}

	rec := env.postForm(base+"/questions/1", url.Values{
		"text":        {"Kim loại nào nặng nhất?"},
		"options":     {"A. Os\nB. Li\n\nC. Na"},
		"answer":      {"A"},
		"explanation": {"Os có khối lượng riêng lớn nhất."},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
	got, err := env.store.GetExam(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	q, _ := got.Exam.Question(1)
	mc, ok := q.Body.(model.MultipleChoice)
	if !ok {
		t.Fatalf("question 1 body = %T, want MultipleChoice", q.Body)
	}
	if q.Text != "Kim loại nào nặng nhất?" || mc.Answer != "A" || len(mc.Options) != 3 {
		t.Errorf("question 1 = %+v", q)
	}

	rec = env.postForm(base+"/questions/2", url.Values{
		"text":              {"Xét:"},
		"sub_0_text":        {"Fe là kim loại."},
		"sub_0_answer":      {model.False},
		"sub_1_text":        {"O2 là phi kim."},
		"sub_1_answer":      {model.True},
		"sub_1_explanation": {"Oxi là phi kim."},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("true/false status = %d, want 303", rec.Code)
	}
	got, _ = env.store.GetExam(context.Background(), stored.ID)
	q, _ = got.Exam.Question(2)
	tf := q.Body.(model.TrueFalse)
	if tf.SubQuestions[0].Answer != model.False || tf.SubQuestions[1].Explanation != "Oxi là phi kim." || tf.SubQuestions[1].ID != "b" {
		t.Errorf("sub-questions = %+v", tf.SubQuestions)
	}
}

func TestUpdateQuestionRejected(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})
	stored := env.saveExam()

	tests := []struct {
		name string
		path string
		form url.Values
	}{
		{"answer not an option", "/questions/1", url.Values{"text": {"Q"}, "options": {"A. x\nB. y"}, "answer": {"C"}}},
		{"one option", "/questions/1", url.Values{"text": {"Q"}, "options": {"A. x"}, "answer": {"A"}}},
		{"empty text", "/questions/1", url.Values{"text": {" "}, "options": {"A. x\nB. y"}, "answer": {"A"}}},
		{"bad sub answer", "/questions/2", url.Values{"text": {"Q"}, "sub_0_answer": {"Có"}, "sub_1_answer": {model.True}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postForm("/exams/"+stored.ID+tt.path, tt.form)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Câu hỏi không hợp lệ") {
				t.Error("response does not show the validation error")
			}
		})
	}

	got, _ := env.store.GetExam(context.Background(), stored.ID)
	q, _ := got.Exam.Question(1)
	if q.Text != "Kim loại nào nhẹ nhất?" {
		t.Errorf("rejected edit changed the question: %q", q.Text)
	}
	if rec := env.postForm("/exams/"+stored.ID+"/questions/99", url.Values{"text": {"Q"}}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown question: status = %d, want 404", rec.Code)
	}
}

func TestImport(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})

	upload := func(name string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("csrf_token", testToken)
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write(data)
		mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/exams/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testToken})
		return env.do(req)
	}

	yamlData, err := model.EncodeExam(sampleExam(), "yaml")
	if err != nil {
		t.Fatalf("EncodeExam: %v", err)
	}
	if rec := upload("exam.yaml", yamlData); rec.Code != http.StatusSeeOther {
		t.Fatalf("YAML import status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}

	jsonData, _ := model.EncodeExam(sampleExam(), "json")
	if rec := upload("exam-data.json", jsonData); rec.Code != http.StatusSeeOther {
		t.Fatalf("JSON import status = %d, want 303", rec.Code)
	}

	rec := upload("broken.json", []byte(`{"title": `))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("broken import status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Không thể nhập đề thi") {
		t.Error("response does not show the import error")
	}

	if n, _ := env.store.ExamCount(context.Background()); n != 2 {
		t.Errorf("stored %d exams, want 2", n)
	}
}

func TestDeleteExam(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{})
	stored := env.saveExam()

	rec := env.postForm("/exams/"+stored.ID+"/delete", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("status = %d, Location = %q; want 303 to /", rec.Code, rec.Header().Get("Location"))
	}
	if _, err := env.store.GetExam(context.Background(), stored.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetExam after delete: err = %v, want ErrNotFound", err)
	}
	if rec := env.postForm("/exams/"+stored.ID+"/delete", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}

func TestAPIExport(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{CORSOrigins: []string{"https://lms.example.edu"}})
	body, _ := model.EncodeExam(sampleExam(), "json")

	req := httptest.NewRequest(http.MethodPost, "/api/export/html", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://lms.example.edu")
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://lms.example.edu" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if !strings.Contains(rec.Body.String(), `data-answer="B"`) {
		t.Error("interactive page does not carry the answer key")
	}
	if n, _ := env.store.ExamCount(context.Background()); n != 0 {
		t.Errorf("API export stored %d exams, want 0", n)
	}

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"malformed body", "/api/export/json", `{"questions": [`, http.StatusBadRequest},
		{"question without type", "/api/export/json", `{"title": "x", "questions": [{"id": 1, "text": "q"}]}`, http.StatusBadRequest},
		{"unknown format", "/api/export/pdf", string(body), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
				t.Errorf("body = %s, want a JSON error", rec.Body.String())
			}
		})
	}
}

func TestPasswordLogin(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{PasswordRequired: true})
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := env.store.SetPasswordHash(context.Background(), string(hash)); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}

	rec := env.get("/")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous GET /: status = %d, Location = %q; want 303 to /login", rec.Code, rec.Header().Get("Location"))
	}
	if rec := env.get("/login"); rec.Code != http.StatusOK {
		t.Fatalf("login page status = %d, want 200", rec.Code)
	}

	rec = env.postForm("/login", url.Values{"password": {"wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Mật khẩu không đúng.") {
		t.Error("wrong password: error message not shown")
	}

	rec = env.postForm("/login", url.Values{"password": {"s3cret"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login: status = %d, want 303", rec.Code)
	}
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			session = c
		}
	}
	if session == nil || !session.HttpOnly {
		t.Fatalf("login did not set an HttpOnly session cookie: %+v", session)
	}

	if rec := env.get("/", session); rec.Code != http.StatusOK {
		t.Fatalf("signed-in GET /: status = %d, want 200", rec.Code)
	}
	if !strings.Contains(env.get("/", session).Body.String(), `action="/logout"`) {
		t.Error("signed-in page has no logout form")
	}

	if rec := env.postForm("/logout", nil, session); rec.Code != http.StatusSeeOther {
		t.Fatalf("logout: status = %d, want 303", rec.Code)
	}
	if rec := env.get("/", session); rec.Code != http.StatusSeeOther {
		t.Errorf("GET / after logout: status = %d, want 303", rec.Code)
	}
}

func TestHXRequestRedirect(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{PasswordRequired: true})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("HX-Redirect") != "/login" {
		t.Errorf("status = %d, HX-Redirect = %q; want 401 and /login", rec.Code, rec.Header().Get("HX-Redirect"))
	}
}

func TestBasePath(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{BasePath: "/examgen"})

	rec := env.get("/examgen/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `action="/examgen/exams"`) {
		t.Error("form actions are not prefixed with the base path")
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName && c.Path != "/examgen/" {
			t.Errorf("CSRF cookie path = %q, want /examgen/", c.Path)
		}
	}

	rec = env.postForm("/examgen/exams", generationForm())
	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(rec.Header().Get("Location"), "/examgen/exams/") {
		t.Errorf("status = %d, Location = %q; want 303 under /examgen/exams/", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, model.AppConfig{PasswordRequired: true})
	if rec := env.get("/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(nil, &fakeGenerator{}, model.AppConfig{}); err == nil {
		t.Error("New with nil store: want error")
	}
}
