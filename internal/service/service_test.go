package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/applicheck/internal/db"
	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/photostore"
	"github.com/vbonduro/applicheck/internal/vision"
)

// stubPhotoStore is a minimal in-memory photostore.PhotoStore for tests.
type stubPhotoStore struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
	n       int
}

func newStubPhotoStore() *stubPhotoStore {
	return &stubPhotoStore{saved: make(map[string][]byte)}
}

func (s *stubPhotoStore) Save(_ context.Context, prefix, _ string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, _ := io.ReadAll(r)
	s.n++
	key := fmt.Sprintf("%s_photo%d.jpg", prefix, s.n)
	s.saved[key] = data
	return key, nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := s.saved[key]
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (s *stubPhotoStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	if _, ok := s.saved[key]; !ok {
		return photostore.ErrNotFound
	}
	delete(s.saved, key)
	return nil
}

type stubDescriber struct {
	suggestion *vision.Suggestion
	err        error
}

func (s *stubDescriber) Describe(_ context.Context, _ io.Reader, _ string) (*vision.Suggestion, error) {
	return s.suggestion, s.err
}

// denyAll refuses every action.
type denyAll struct{}

func (denyAll) Authorize(_ context.Context, id Identity, action Action) error {
	return fmt.Errorf("%s may not %s: %w", id.User, action, ErrForbidden)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	alice = Identity{OrgID: "org-1", User: "alice"}
	bob   = Identity{OrgID: "org-1", User: "bob"}
	eve   = Identity{OrgID: "org-2", User: "eve"}
)

// twoItemLockers is one locker holding items X and Y.
func twoItemLockers() []domain.Locker {
	return []domain.Locker{{ID: "L", Name: "Nearside", Shelves: []domain.Shelf{{ID: "S", Items: []domain.Item{
		{ID: "X", Name: "X", Type: domain.ItemTypeItem},
		{ID: "Y", Name: "Y", Type: domain.ItemTypeItem},
	}}}}}
}

var errBoom = errors.New("boom")
