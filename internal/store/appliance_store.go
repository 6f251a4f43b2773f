package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vbonduro/applicheck/internal/domain"
)

var ErrNotFound = errors.New("not found")

// ApplianceStore keeps each appliance's locker tree as one JSON document.
type ApplianceStore struct {
	db *sql.DB
}

func NewApplianceStore(db *sql.DB) *ApplianceStore {
	return &ApplianceStore{db: db}
}

// Create inserts a new appliance. An empty ID is assigned a fresh one.
func (s *ApplianceStore) Create(ctx context.Context, a *domain.Appliance) (*domain.Appliance, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	doc, err := encodeLockers(a.Lockers)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO appliances (id, org_id, name, doc) VALUES (?, ?, ?, ?)
	`, a.ID, a.OrgID, a.Name, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create appliance: %w", err)
	}

	return s.GetByID(ctx, a.ID)
}

func (s *ApplianceStore) GetByID(ctx context.Context, id string) (*domain.Appliance, error) {
	a := &domain.Appliance{}
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, doc, created_at, updated_at FROM appliances WHERE id = ?
	`, id).Scan(&a.ID, &a.OrgID, &a.Name, &doc, &a.CreatedAt, &a.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appliance: %w", err)
	}

	if err := json.Unmarshal([]byte(doc), &a.Lockers); err != nil {
		return nil, fmt.Errorf("failed to decode appliance %s: %w", id, err)
	}
	return a, nil
}

// List returns the organisation's appliances by name, without their lockers.
func (s *ApplianceStore) List(ctx context.Context, orgID string) ([]*domain.Appliance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, name, created_at, updated_at FROM appliances
		WHERE org_id = ? ORDER BY name COLLATE NOCASE ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appliances: %w", err)
	}
	defer rows.Close()

	var appliances []*domain.Appliance
	for rows.Next() {
		a := &domain.Appliance{}
		if err := rows.Scan(&a.ID, &a.OrgID, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan appliance: %w", err)
		}
		appliances = append(appliances, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appliances: %w", err)
	}

	return appliances, nil
}

// Save replaces the appliance's name and locker tree.
func (s *ApplianceStore) Save(ctx context.Context, a *domain.Appliance) error {
	doc, err := encodeLockers(a.Lockers)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE appliances SET name = ?, doc = ?, updated_at = datetime('now') WHERE id = ?
	`, a.Name, doc, a.ID)
	if err != nil {
		return fmt.Errorf("failed to save appliance: %w", err)
	}
	return requireRow(result, "appliance", a.ID)
}

func (s *ApplianceStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM appliances WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appliance: %w", err)
	}
	return requireRow(result, "appliance", id)
}

func encodeLockers(lockers []domain.Locker) (string, error) {
	if lockers == nil {
		lockers = []domain.Locker{}
	}
	doc, err := json.Marshal(lockers)
	if err != nil {
		return "", fmt.Errorf("failed to encode lockers: %w", err)
	}
	return string(doc), nil
}

func requireRow(result sql.Result, what, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
