package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/inventory"
	"github.com/vbonduro/applicheck/internal/photostore"
	"github.com/vbonduro/applicheck/internal/vision"
)

// applianceRepository is the subset of store.ApplianceStore that the services
// require.
type applianceRepository interface {
	Create(ctx context.Context, a *domain.Appliance) (*domain.Appliance, error)
	GetByID(ctx context.Context, id string) (*domain.Appliance, error)
	List(ctx context.Context, orgID string) ([]*domain.Appliance, error)
	Save(ctx context.Context, a *domain.Appliance) error
	Delete(ctx context.Context, id string) error
}

type ApplianceService struct {
	appliances     applianceRepository
	photos         photostore.PhotoStore
	describer      vision.Describer
	authz          Authorizer
	imageURLPrefix string
	logger         *slog.Logger
}

// NewApplianceService wires the inventory editor. describer may be nil when
// photo suggestions are disabled. Image URLs are imageURLPrefix followed by
// the photo's storage key.
func NewApplianceService(
	appliances applianceRepository,
	photos photostore.PhotoStore,
	describer vision.Describer,
	authz Authorizer,
	imageURLPrefix string,
	logger *slog.Logger,
) *ApplianceService {
	return &ApplianceService{
		appliances:     appliances,
		photos:         photos,
		describer:      describer,
		authz:          authz,
		imageURLPrefix: imageURLPrefix,
		logger:         logger,
	}
}

func (s *ApplianceService) CreateAppliance(ctx context.Context, id Identity, name string) (*domain.Appliance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("appliance name required")
	}
	if err := s.authz.Authorize(ctx, id, ActionEditInventory); err != nil {
		return nil, err
	}

	a, err := s.appliances.Create(ctx, &domain.Appliance{OrgID: id.OrgID, Name: name, Lockers: []domain.Locker{}})
	if err != nil {
		return nil, err
	}
	s.logger.Info("appliance created", "appliance_id", a.ID, "org_id", id.OrgID, "user", id.User)
	return a, nil
}

func (s *ApplianceService) ListAppliances(ctx context.Context, id Identity) ([]*domain.Appliance, error) {
	return s.appliances.List(ctx, id.OrgID)
}

// GetInventory loads an appliance of the caller's organisation.
func (s *ApplianceService) GetInventory(ctx context.Context, id Identity, applianceID string) (*domain.Appliance, error) {
	return loadAppliance(ctx, s.appliances, id, applianceID)
}

func loadAppliance(ctx context.Context, repo interface {
	GetByID(ctx context.Context, id string) (*domain.Appliance, error)
}, id Identity, applianceID string) (*domain.Appliance, error) {
	a, err := repo.GetByID(ctx, applianceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load appliance: %w", err)
	}
	if a == nil || a.OrgID != id.OrgID {
		return nil, fmt.Errorf("appliance %s: %w", applianceID, ErrNotFound)
	}
	return a, nil
}

// SaveInventory replaces the locker tree. Photos no longer referenced by the
// tree are deleted afterwards.
func (s *ApplianceService) SaveInventory(ctx context.Context, id Identity, a *domain.Appliance) (*domain.Appliance, error) {
	if err := s.authz.Authorize(ctx, id, ActionEditInventory); err != nil {
		return nil, err
	}
	existing, err := loadAppliance(ctx, s.appliances, id, a.ID)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	updated := a.Clone()
	updated.OrgID = existing.OrgID
	if err := s.appliances.Save(ctx, updated); err != nil {
		return nil, err
	}
	s.logger.Info("inventory saved", "appliance_id", a.ID, "lockers", len(a.Lockers), "user", id.User)

	s.deleteUnreferenced(ctx, existing.Images(), updated.Images())
	return loadAppliance(ctx, s.appliances, id, a.ID)
}

// EditLocker inserts or replaces one locker, keyed by id. A locker without an
// id is appended as new. Lockers always carry at least two shelves.
func (s *ApplianceService) EditLocker(ctx context.Context, id Identity, applianceID string, locker domain.Locker) (*domain.Appliance, error) {
	a, err := loadAppliance(ctx, s.appliances, id, applianceID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(locker.Name) == "" {
		return nil, invalidf("locker name required")
	}

	locker = inventory.PadShelves(locker, uuid.NewString)
	if locker.ID == "" {
		locker.ID = uuid.NewString()
		a.Lockers = append(a.Lockers, locker)
	} else {
		replaced := false
		for i := range a.Lockers {
			if a.Lockers[i].ID == locker.ID {
				a.Lockers[i] = locker
				replaced = true
				break
			}
		}
		if !replaced {
			return nil, fmt.Errorf("locker %s: %w", locker.ID, ErrNotFound)
		}
	}
	return s.SaveInventory(ctx, id, a)
}

func (s *ApplianceService) DeleteLocker(ctx context.Context, id Identity, applianceID, lockerID string) (*domain.Appliance, error) {
	a, err := loadAppliance(ctx, s.appliances, id, applianceID)
	if err != nil {
		return nil, err
	}
	kept := a.Lockers[:0]
	for _, l := range a.Lockers {
		if l.ID != lockerID {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(a.Lockers) {
		return nil, fmt.Errorf("locker %s: %w", lockerID, ErrNotFound)
	}
	a.Lockers = kept
	return s.SaveInventory(ctx, id, a)
}

// DeleteAppliance removes the appliance and every photo its tree references.
// Photo deletion failures are logged and do not block the delete.
func (s *ApplianceService) DeleteAppliance(ctx context.Context, id Identity, applianceID string) error {
	if err := s.authz.Authorize(ctx, id, ActionDeleteAppliance); err != nil {
		return err
	}
	a, err := loadAppliance(ctx, s.appliances, id, applianceID)
	if err != nil {
		return err
	}
	if err := s.appliances.Delete(ctx, applianceID); err != nil {
		return err
	}
	s.logger.Info("appliance deleted", "appliance_id", applianceID, "user", id.User)
	s.deleteUnreferenced(ctx, a.Images(), nil)
	return nil
}

// UploadImage stores a photo for use in the appliance's tree and returns the
// URL to reference it by.
func (s *ApplianceService) UploadImage(ctx context.Context, id Identity, applianceID string, data []byte, mimeType string) (string, error) {
	if err := s.authz.Authorize(ctx, id, ActionEditInventory); err != nil {
		return "", err
	}
	if _, err := loadAppliance(ctx, s.appliances, id, applianceID); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", invalidf("empty image")
	}

	key, err := s.photos.Save(ctx, applianceID, mimeType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "appliance_id", applianceID, "storage_key", key, "bytes", len(data))
	return s.imageURLPrefix + key, nil
}

// DeleteImage removes a photo by the URL UploadImage returned. Deleting a
// photo that is already gone succeeds.
func (s *ApplianceService) DeleteImage(ctx context.Context, id Identity, url string) error {
	if err := s.authz.Authorize(ctx, id, ActionEditInventory); err != nil {
		return err
	}
	key, ok := s.storageKey(url)
	if !ok {
		return invalidf("not a stored image: %s", url)
	}
	if err := s.photos.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func (s *ApplianceService) OpenImage(ctx context.Context, key string) (io.ReadCloser, string, error) {
	rc, mimeType, err := s.photos.Get(ctx, key)
	if errors.Is(err, photostore.ErrNotFound) {
		return nil, "", fmt.Errorf("image %s: %w", key, ErrNotFound)
	}
	return rc, mimeType, err
}

// SuggestItem asks the vision backend for a name and description of the
// equipment in a photo.
func (s *ApplianceService) SuggestItem(ctx context.Context, data []byte, mimeType string) (*vision.Suggestion, error) {
	if s.describer == nil {
		return nil, ErrVisionUnavailable
	}
	s.logger.Info("vision suggestion started", "mime_type", mimeType, "bytes", len(data))
	suggestion, err := s.describer.Describe(ctx, bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to describe image: %w", err)
	}
	s.logger.Info("vision suggestion complete", "name", suggestion.Name)
	return suggestion, nil
}

func (s *ApplianceService) storageKey(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.imageURLPrefix)
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}

func (s *ApplianceService) deleteUnreferenced(ctx context.Context, before, after []string) {
	keep := make(map[string]bool, len(after))
	for _, url := range after {
		keep[url] = true
	}
	for _, url := range before {
		if keep[url] {
			continue
		}
		key, ok := s.storageKey(url)
		if !ok {
			continue
		}
		keep[url] = true
		if err := s.photos.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
			s.logger.Warn("failed to delete unreferenced photo", "storage_key", key, "error", err)
		}
	}
}
