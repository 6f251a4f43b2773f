package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/store"
	"github.com/vbonduro/applicheck/internal/vision"
)

func newTestApplianceService(t *testing.T) (*ApplianceService, *stubPhotoStore) {
	t.Helper()
	photos := newStubPhotoStore()
	svc := NewApplianceService(
		store.NewApplianceStore(openTestDB(t)),
		photos,
		&stubDescriber{suggestion: &vision.Suggestion{Name: "Hose Reel", Desc: "First-strike hose"}},
		AllowAll{},
		"/images/",
		testLogger(),
	)
	return svc, photos
}

func TestApplianceServiceCreateAppliance(t *testing.T) {
	svc, _ := newTestApplianceService(t)
	ctx := context.Background()

	a, err := svc.CreateAppliance(ctx, alice, "  Pump 1 ")
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Pump 1", a.Name)
	assert.Equal(t, "org-1", a.OrgID)

	_, err = svc.CreateAppliance(ctx, alice, "   ")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestApplianceServiceListIsScopedToOrg(t *testing.T) {
	svc, _ := newTestApplianceService(t)
	ctx := context.Background()

	_, err := svc.CreateAppliance(ctx, alice, "Pump 1")
	require.NoError(t, err)
	_, err = svc.CreateAppliance(ctx, eve, "Other")
	require.NoError(t, err)

	list, err := svc.ListAppliances(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pump 1", list[0].Name)
}

func TestApplianceServiceGetInventoryOtherOrg(t *testing.T) {
	svc, _ := newTestApplianceService(t)
	ctx := context.Background()

	a, err := svc.CreateAppliance(ctx, alice, "Pump 1")
	require.NoError(t, err)

	_, err = svc.GetInventory(ctx, eve, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetInventory(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplianceServiceSaveInventory(t *testing.T) {
	svc, _ := newTestApplianceService(t)
	ctx := context.Background()

	a, err := svc.CreateAppliance(ctx, alice, "Pump 1")
	require.NoError(t, err)

	a.Lockers = twoItemLockers()
	saved, err := svc.SaveInventory(ctx, alice, a)
	require.NoError(t, err)
	require.Len(t, saved.Lockers, 1)
	assert.Len(t, saved.Lockers[0].Shelves[0].Items, 2)

	a.Lockers[0].Shelves[0].Items[1].ID = "X"
	_, err = svc.SaveInventory(ctx, alice, a)
	assert.ErrorIs(t, err, domain.ErrInvalidInventory)
}

func TestApplianceServiceSaveInventoryDeletesUnreferencedPhotos(t *testing.T) {
	svc, photos := newTestApplianceService(t)
	ctx := context.Background()

	a, err := svc.CreateAppliance(ctx, alice, "Pump 1")
	require.NoError(t, err)
	keepURL, err := svc.UploadImage(ctx, alice, a.ID, []byte("keep"), "image/jpeg")
	require.NoError(t, err)
	dropURL, err := svc.UploadImage(ctx, alice, a.ID, []byte("drop"), "image/jpeg")
	require.NoError(t, err)

	a.Lockers = twoItemLockers()
	a.Lockers[0].Shelves[0].Items[0].Img = keepURL
	a.Lockers[0].Shelves[0].Items[1].Img = dropURL
	_, err = svc.SaveInventory(ctx, alice, a)
	require.NoError(t, err)
	assert.Empty(t, photos.deleted)

	a.Lockers[0].Shelves[0].Items = a.Lockers[0].Shelves[0].Items[:1]
	_, err = svc.SaveInventory(ctx, alice, a)
	require.NoError(t, err)
	require.Len(t, photos.deleted, 1)
	assert.Equal(t, "/images/"+photos.deleted[0], dropURL)
	assert.Len(t, photos.saved, 1)
}

func TestApplianceServiceSaveInventoryForbidden(t *testing.T) {
	d := openTestDB(t)
	svc := NewApplianceService(store.NewApplianceStore(d), newStubPhotoStore(), nil, denyAll{}, "/images/", testLogger())

	_, err := svc.SaveInventory(context.Background(), alice, &domain.Appliance{ID: "a", Name: "Pump"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApplianceServiceEditLocker(t *testing.T) {
	svc, _ := newTestApplianceService(t)
	ctx := context.Background()

	a, err := svc.CreateAppliance(ctx, alice, "Pump 1")
	require.NoError(t, err)

	a, err = svc.EditLocker(ctx, alice, a.ID, domain.Locker{Name: "Offside"})
	require.NoError(t, err)
	require.Len(t, a.Lockers, 1)
	locker := a.Lockers[0]
	assert.NotEmpty(t, locker.ID)
	assert.GreaterOrEqual(t, len(locker.Shelves), 2, "new lockers get padded shelves")

	locker.Name = "Offside Rear"
	locker.Shelves[0].Items = []domain.Item{{ID: "torch", Name: "Torch", Type: domain.ItemTypeItem}}
	a, err = svc.EditLocker(ctx, alice, a.ID, locker)
	require.NoError(t, err)
	require.Len(t, a.Lockers, 1)
	assert.Equal(t, "Offside Rear", a.Lockers[0].Name)
	assert.Len(t, a.Lockers[0].Shelves[0].Items, 1)

	_, err = svc.EditLocker(ctx, alice, a.ID, domain.Locker{ID: "ghost", Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.EditLocker(ctx, alice, a.ID, domain.Locker{Name: " "})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestApplianceServiceDeleteLocker(t *testing.T) {
	svc, _ := newTestApplianceService(t)
	ctx := context.Background()

	a, err := svc.CreateAppliance(ctx, alice, "Pump 1")
	require.NoError(t, err)
	a.Lockers = twoItemLockers()
	_, err = svc.SaveInventory(ctx, alice, a)
	require.NoError(t, err)

	a, err = svc.DeleteLocker(ctx, alice, a.ID, "L")
	require.NoError(t, err)
	assert.Empty(t, a.Lockers)

	_, err = svc.DeleteLocker(ctx, alice, a.ID, "L")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplianceServiceDeleteAppliance(t *testing.T) {
	svc, photos := newTestApplianceService(t)
	ctx := context.Background()

	a, err := svc.CreateAppliance(ctx, alice, "Pump 1")
	require.NoError(t, err)
	url, err := svc.UploadImage(ctx, alice, a.ID, []byte("img"), "image/jpeg")
	require.NoError(t, err)
	a.Lockers = twoItemLockers()
	a.Lockers[0].Shelves[0].Items[0].Img = url
	_, err = svc.SaveInventory(ctx, alice, a)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAppliance(ctx, alice, a.ID))
	assert.Empty(t, photos.saved)

	_, err = svc.GetInventory(ctx, alice, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteAppliance(ctx, alice, a.ID), ErrNotFound)
}

func TestApplianceServiceImages(t *testing.T) {
	svc, photos := newTestApplianceService(t)
	ctx := context.Background()

	a, err := svc.CreateAppliance(ctx, alice, "Pump 1")
	require.NoError(t, err)

	url, err := svc.UploadImage(ctx, alice, a.ID, []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Contains(t, url, "/images/")

	key := url[len("/images/"):]
	rc, mimeType, err := svc.OpenImage(ctx, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", mimeType)

	require.NoError(t, svc.DeleteImage(ctx, alice, url))
	require.NoError(t, svc.DeleteImage(ctx, alice, url), "deleting twice succeeds")
	assert.Empty(t, photos.saved)

	_, _, err = svc.OpenImage(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.DeleteImage(ctx, alice, "https://elsewhere/x.jpg"), ErrInvalid)

	_, err = svc.UploadImage(ctx, alice, a.ID, nil, "image/jpeg")
	assert.ErrorIs(t, err, ErrInvalid)

	photos.saveErr = errBoom
	_, err = svc.UploadImage(ctx, alice, a.ID, []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, errBoom)
}

func TestApplianceServiceSuggestItem(t *testing.T) {
	svc, _ := newTestApplianceService(t)

	s, err := svc.SuggestItem(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Hose Reel", s.Name)
	assert.Equal(t, "First-strike hose", s.Desc)
}

func TestApplianceServiceSuggestItemErrors(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	noVision := NewApplianceService(store.NewApplianceStore(d), newStubPhotoStore(), nil, AllowAll{}, "/images/", testLogger())
	_, err := noVision.SuggestItem(ctx, []byte("img"), "image/png")
	assert.ErrorIs(t, err, ErrVisionUnavailable)

	failing := NewApplianceService(store.NewApplianceStore(d), newStubPhotoStore(), &stubDescriber{err: errBoom}, AllowAll{}, "/images/", testLogger())
	_, err = failing.SuggestItem(ctx, []byte("img"), "image/png")
	assert.ErrorIs(t, err, errBoom)
}
