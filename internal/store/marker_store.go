package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/applicheck/internal/domain"
)

// MarkerStore records which user has a check in progress on an appliance.
// Markers are advisory: starting a check replaces any existing marker.
type MarkerStore struct {
	db *sql.DB
}

func NewMarkerStore(db *sql.DB) *MarkerStore {
	return &MarkerStore{db: db}
}

func (s *MarkerStore) Start(ctx context.Context, orgID, applianceID, user string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO check_markers (org_id, appliance_id, started_by, started_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (org_id, appliance_id) DO UPDATE SET started_by = excluded.started_by, started_at = excluded.started_at
	`, orgID, applianceID, user, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to start check marker: %w", err)
	}
	return nil
}

// Complete clears the marker. Clearing an absent marker is not an error.
func (s *MarkerStore) Complete(ctx context.Context, orgID, applianceID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM check_markers WHERE org_id = ? AND appliance_id = ?
	`, orgID, applianceID)
	if err != nil {
		return fmt.Errorf("failed to complete check marker: %w", err)
	}
	return nil
}

func (s *MarkerStore) Status(ctx context.Context, orgID, applianceID string) (*domain.CheckMarker, error) {
	m := &domain.CheckMarker{}
	err := s.db.QueryRowContext(ctx, `
		SELECT org_id, appliance_id, started_by, started_at FROM check_markers
		WHERE org_id = ? AND appliance_id = ?
	`, orgID, applianceID).Scan(&m.OrgID, &m.ApplianceID, &m.User, &m.StartedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check marker: %w", err)
	}
	return m, nil
}
