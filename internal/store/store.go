package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examgen/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a stored exam does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases whole and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		request TEXT,
		document TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		format TEXT NOT NULL,
		file_name TEXT NOT NULL,
		size INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		digest TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveExam stores a new exam and returns it with its assigned ID.
func (s *Store) SaveExam(ctx context.Context, exam model.Exam, req *model.GenerationRequest) (model.StoredExam, error) {
	doc, err := model.MarshalIndentJSON(exam, "")
	if err != nil {
		return model.StoredExam{}, fmt.Errorf("encode exam: %w", err)
	}
	var reqJSON sql.NullString
	if req != nil {
		b, err := json.Marshal(req)
		if err != nil {
			return model.StoredExam{}, fmt.Errorf("encode request: %w", err)
		}
		reqJSON = sql.NullString{String: string(b), Valid: true}
	}

	now := time.Now().UTC()
	stored := model.StoredExam{
		ID:        uuid.NewString(),
		Exam:      exam,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exams (id, title, request, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, exam.Title, reqJSON, string(doc), now, now,
	)
	if err != nil {
		return model.StoredExam{}, err
	}
	return stored, nil
}

// GetExam returns the stored exam with the given ID.
func (s *Store) GetExam(ctx context.Context, id string) (model.StoredExam, error) {
	return getExam(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getExam(ctx context.Context, q queryRower, id string) (model.StoredExam, error) {
	var (
		stored  model.StoredExam
		reqJSON sql.NullString
		doc     string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, request, document, created_at, updated_at FROM exams WHERE id = ?`, id,
	).Scan(&stored.ID, &reqJSON, &doc, &stored.CreatedAt, &stored.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredExam{}, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.StoredExam{}, err
	}
	if err := json.Unmarshal([]byte(doc), &stored.Exam); err != nil {
		return model.StoredExam{}, fmt.Errorf("decode exam %s: %w", id, err)
	}
	if reqJSON.Valid {
		var req model.GenerationRequest
		if err := json.Unmarshal([]byte(reqJSON.String), &req); err != nil {
			return model.StoredExam{}, fmt.Errorf("decode request %s: %w", id, err)
		}
		stored.Request = &req
	}
	return stored, nil
}

// ExamSummary is one row of the exam list.
type ExamSummary struct {
	ID           string
	Title        string
	NumQuestions int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListExams returns all stored exams, newest first.
func (s *Store) ListExams(ctx context.Context) ([]ExamSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, json_array_length(document, '$.questions'), created_at, updated_at
		 FROM exams ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []ExamSummary
	for rows.Next() {
		var e ExamSummary
		var n sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Title, &n, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.NumQuestions = int(n.Int64)
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// ReplaceExam overwrites the document of a stored exam.
func (s *Store) ReplaceExam(ctx context.Context, id string, exam model.Exam) error {
	doc, err := model.MarshalIndentJSON(exam, "")
	if err != nil {
		return fmt.Errorf("encode exam: %w", err)
	}
	return s.replaceDocument(ctx, s.db, id, exam.Title, doc)
}

// UpdateQuestion replaces one question of a stored exam, matched by question ID.
func (s *Store) UpdateQuestion(ctx context.Context, examID string, q model.Question) (model.StoredExam, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.StoredExam{}, err
	}
	defer tx.Rollback()

	stored, err := getExam(ctx, tx, examID)
	if err != nil {
		return model.StoredExam{}, err
	}
	if err := stored.Exam.ReplaceQuestion(q); err != nil {
		return model.StoredExam{}, err
	}
	doc, err := model.MarshalIndentJSON(stored.Exam, "")
	if err != nil {
		return model.StoredExam{}, fmt.Errorf("encode exam: %w", err)
	}
	if err := s.replaceDocument(ctx, tx, examID, stored.Exam.Title, doc); err != nil {
		return model.StoredExam{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.StoredExam{}, err
	}
	stored.UpdatedAt = time.Now().UTC()
	return stored, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) replaceDocument(ctx context.Context, e execer, id, title string, doc []byte) error {
	res, err := e.ExecContext(ctx,
		`UPDATE exams SET title = ?, document = ?, updated_at = ? WHERE id = ?`,
		title, string(doc), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// DeleteExam removes a stored exam and its export log.
func (s *Store) DeleteExam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// ExamCount returns the number of stored exams.
func (s *Store) ExamCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exams`).Scan(&n)
	return n, err
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return nil
}
