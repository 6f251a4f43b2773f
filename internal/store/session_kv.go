package store

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// SessionKV is a key/value store scoped to one namespace, typically one
// user's check of one appliance.
type SessionKV struct {
	db        *sql.DB
	namespace string
}

func NewSessionKV(db *sql.DB, namespace string) *SessionKV {
	return &SessionKV{db: db, namespace: namespace}
}

// SessionNamespace builds the namespace for a user's check of an appliance.
func SessionNamespace(orgID, applianceID, user string) string {
	return strings.Join([]string{orgID, applianceID, user}, "/")
}

func (s *SessionKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM session_kv WHERE namespace = ? AND key = ?
	`, s.namespace, key).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session key %s: %w", key, err)
	}
	return value, true, nil
}

// SetMany upserts every value in one transaction. Keys are written in sorted
// order.
func (s *SessionKV) SetMany(ctx context.Context, values map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range slices.Sorted(maps.Keys(values)) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_kv (namespace, key, value) VALUES (?, ?, ?)
			ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
		`, s.namespace, key, values[key]); err != nil {
			return fmt.Errorf("failed to set session key %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session keys: %w", err)
	}
	return nil
}

func (s *SessionKV) Clear(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM session_kv WHERE namespace = ? AND key = ?
		`, s.namespace, key); err != nil {
			return fmt.Errorf("failed to clear session key %s: %w", key, err)
		}
	}
	return tx.Commit()
}
