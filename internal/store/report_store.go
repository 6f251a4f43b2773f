package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vbonduro/applicheck/internal/domain"
)

// ReportStore persists signed-off reports. Reports are never updated.
type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// SaveReport stores r under a new id and returns it.
func (s *ReportStore) SaveReport(ctx context.Context, r *domain.Report) (string, error) {
	id := uuid.NewString()
	stored := *r
	stored.ID = id
	doc, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, org_id, appliance_id, appliance_name, signed_name, created_by, date, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, r.OrgID, r.ApplianceID, r.ApplianceName, r.SignedName, r.CreatedBy, r.Date, string(doc))
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return id, nil
}

func (s *ReportStore) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT doc FROM reports WHERE id = ?
	`, id).Scan(&doc)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	r := &domain.Report{}
	if err := json.Unmarshal([]byte(doc), r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return r, nil
}

// ListByOrg returns report headers newest first.
func (s *ReportStore) ListByOrg(ctx context.Context, orgID string) ([]*domain.ReportHeader, error) {
	return s.list(ctx, `WHERE org_id = ?`, orgID)
}

func (s *ReportStore) ListByAppliance(ctx context.Context, applianceID string) ([]*domain.ReportHeader, error) {
	return s.list(ctx, `WHERE appliance_id = ?`, applianceID)
}

func (s *ReportStore) list(ctx context.Context, where string, arg string) ([]*domain.ReportHeader, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, appliance_id, appliance_name, signed_name, date, created_at
		FROM reports `+where+` ORDER BY date DESC, created_at DESC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var headers []*domain.ReportHeader
	for rows.Next() {
		h := &domain.ReportHeader{}
		if err := rows.Scan(&h.ID, &h.OrgID, &h.ApplianceID, &h.ApplianceName, &h.SignedName, &h.Date, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		headers = append(headers, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return headers, nil
}
