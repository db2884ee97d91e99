package store

import (
	"context"
	"database/sql"
	"errors"
)

// Setting keys.
const (
	settingPasswordHash = "ui.password_hash"
)

// PutSetting stores a workspace setting, replacing any previous value.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Setting returns a workspace setting; ok is false when it was never stored.
func (s *Store) Setting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// PasswordHash returns the bcrypt hash guarding the UI, empty when none is set.
func (s *Store) PasswordHash(ctx context.Context) (string, error) {
	hash, _, err := s.Setting(ctx, settingPasswordHash)
	return hash, err
}

// SetPasswordHash stores the bcrypt hash guarding the UI.
func (s *Store) SetPasswordHash(ctx context.Context, hash string) error {
	return s.PutSetting(ctx, settingPasswordHash, hash)
}
