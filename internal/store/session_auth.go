package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/examgen/internal/model"
)

// DefaultSessionTTL is how long a sign-in lasts when no TTL is given.
const DefaultSessionTTL = 24 * time.Hour

// Only the SHA-256 digest of a token is written to the database.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// StartAuthSession records a sign-in valid for ttl and returns the cookie token.
func (s *Store) StartAuthSession(ctx context.Context, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (digest, created_at, expires_at) VALUES (?, ?, ?)`,
		tokenDigest(token), now, now.Add(ttl),
	); err != nil {
		return "", fmt.Errorf("insert auth session: %w", err)
	}
	return token, nil
}

// LookupAuthSession returns the live session for token. A missing or expired
// session yields nil without error; expired rows are removed on sight.
func (s *Store) LookupAuthSession(ctx context.Context, token string) (*model.AuthSession, error) {
	digest := tokenDigest(token)
	var sess model.AuthSession
	err := s.db.QueryRowContext(ctx,
		`SELECT digest, created_at, expires_at FROM auth_sessions WHERE digest = ?`, digest,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("query auth session: %w", err)
	}
	if !time.Now().Before(sess.ExpiresAt) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE digest = ?`, digest)
		return nil, nil
	}
	return &sess, nil
}

// EndAuthSession signs token out. Unknown tokens are ignored.
func (s *Store) EndAuthSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE digest = ?`, tokenDigest(token))
	return err
}

// PurgeExpiredSessions deletes expired sessions and reports how many went.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
