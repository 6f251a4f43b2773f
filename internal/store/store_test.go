package store

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/applicheck/internal/check"
	"github.com/vbonduro/applicheck/internal/db"
	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/signature"
)

func openTestDB(t *testing.T) *sql.DB {
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAppliance(name string) *domain.Appliance {
	return &domain.Appliance{
		OrgID: "org-1",
		Name:  name,
		Lockers: []domain.Locker{{ID: "L1", Name: "Nearside", Shelves: []domain.Shelf{{ID: "S1", Items: []domain.Item{
			{ID: "axe", Name: "Axe", Type: domain.ItemTypeItem},
			{ID: "box", Name: "Spares", Type: domain.ItemTypeContainer, SubItems: []domain.SubItem{}},
		}}}}},
	}
}

func TestApplianceStoreCreate(t *testing.T) {
	store := NewApplianceStore(openTestDB(t))
	ctx := context.Background()

	a, err := store.Create(ctx, testAppliance("Pump 1"))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Pump 1", a.Name)
	assert.Equal(t, "org-1", a.OrgID)
	assert.False(t, a.CreatedAt.IsZero())
	require.Len(t, a.Lockers, 1)
	require.NoError(t, a.Validate(), "empty container survives the round trip")
}

func TestApplianceStoreGetByIDMissing(t *testing.T) {
	store := NewApplianceStore(openTestDB(t))

	a, err := store.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestApplianceStoreList(t *testing.T) {
	store := NewApplianceStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, testAppliance("Rescue 2"))
	require.NoError(t, err)
	_, err = store.Create(ctx, testAppliance("pump 1"))
	require.NoError(t, err)
	other := testAppliance("Elsewhere")
	other.OrgID = "org-2"
	_, err = store.Create(ctx, other)
	require.NoError(t, err)

	list, err := store.List(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pump 1", list[0].Name)
	assert.Equal(t, "Rescue 2", list[1].Name)
}

func TestApplianceStoreSave(t *testing.T) {
	store := NewApplianceStore(openTestDB(t))
	ctx := context.Background()

	a, err := store.Create(ctx, testAppliance("Pump 1"))
	require.NoError(t, err)

	a.Name = "Pump One"
	a.Lockers = append(a.Lockers, domain.Locker{ID: "L2", Name: "Offside"})
	require.NoError(t, store.Save(ctx, a))

	got, err := store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pump One", got.Name)
	assert.Len(t, got.Lockers, 2)

	err = store.Save(ctx, &domain.Appliance{ID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplianceStoreDelete(t *testing.T) {
	store := NewApplianceStore(openTestDB(t))
	ctx := context.Background()

	a, err := store.Create(ctx, testAppliance("Temp"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, a.ID))

	got, err := store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, store.Delete(ctx, a.ID), ErrNotFound)
}

func TestReportStore(t *testing.T) {
	store := NewReportStore(openTestDB(t))
	ctx := context.Background()

	rep := &domain.Report{
		OrgID:         "org-1",
		Date:          "2026-03-04T05:06:07Z",
		ApplianceID:   "app-1",
		ApplianceName: "Pump 1",
		SignedName:    "J. Doe",
		Signature:     signature.Signature{Version: 1, Strokes: []signature.Stroke{{Points: []signature.Point{{X: 0.5, Y: 0.5}}}}},
		Lockers:       []domain.ReportLocker{{ID: "L1", Name: "Nearside"}},
	}
	id, err := store.SaveReport(ctx, rep)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Empty(t, rep.ID, "caller's report is not mutated")

	later := *rep
	later.Date = "2026-04-01T00:00:00Z"
	laterID, err := store.SaveReport(ctx, &later)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "J. Doe", got.SignedName)
	assert.Equal(t, 1, got.Signature.PointCount())

	headers, err := store.ListByOrg(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, laterID, headers[0].ID)

	headers, err = store.ListByAppliance(ctx, "app-2")
	require.NoError(t, err)
	assert.Empty(t, headers)

	missing, err := store.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMarkerStore(t *testing.T) {
	store := NewMarkerStore(openTestDB(t))
	ctx := context.Background()

	m, err := store.Status(ctx, "org-1", "app-1")
	require.NoError(t, err)
	assert.Nil(t, m)

	started := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Start(ctx, "org-1", "app-1", "alice", started))
	require.NoError(t, store.Start(ctx, "org-1", "app-1", "bob", started.Add(time.Hour)))

	m, err = store.Status(ctx, "org-1", "app-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "bob", m.User)
	assert.True(t, m.StartedAt.Equal(started.Add(time.Hour)))

	require.NoError(t, store.Complete(ctx, "org-1", "app-1"))
	require.NoError(t, store.Complete(ctx, "org-1", "app-1"))
	m, err = store.Status(ctx, "org-1", "app-1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSessionKV(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	kv := NewSessionKV(d, SessionNamespace("org-1", "app-1", "alice"))
	other := NewSessionKV(d, SessionNamespace("org-1", "app-1", "bob"))

	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.SetMany(ctx, map[string][]byte{"k": []byte("v1")}))
	require.NoError(t, kv.SetMany(ctx, map[string][]byte{"k": []byte("v2"), "empty": nil}))

	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", string(v))

	_, ok, err = kv.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = other.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Clear(ctx, "k", "empty", "absent"))
	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

// failKey makes every write of key abort inside SQLite.
func failKey(t *testing.T, d *sql.DB, key string) {
	t.Helper()
	for _, event := range []string{"INSERT", "UPDATE"} {
		_, err := d.Exec(`CREATE TRIGGER fail_` + event + ` BEFORE ` + event + ` ON session_kv
			WHEN NEW.key = '` + key + `'
			BEGIN SELECT RAISE(ABORT, 'write refused'); END`)
		require.NoError(t, err)
	}
}

func TestSessionKVSetManyIsAtomic(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	kv := NewSessionKV(d, SessionNamespace("org-1", "app-1", "alice"))
	require.NoError(t, kv.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("1")}))

	failKey(t, d, "c")
	err := kv.SetMany(ctx, map[string][]byte{"a": []byte("2"), "b": []byte("2"), "c": []byte("2")})
	require.Error(t, err)

	for _, key := range []string{"a", "b"} {
		v, ok, err := kv.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "1", string(v), key)
	}
	_, ok, err := kv.Get(ctx, "c")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckSessionWriteFailureKeepsPriorState(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	ns := SessionNamespace("org-1", "app-1", "alice")
	a := testAppliance("Pump 1")

	s, err := check.Start(ctx, a, NewSessionKV(d, ns), testLogger())
	require.NoError(t, err)
	require.Equal(t, "axe", s.State().SelectedItemID)
	before := s.State()

	failKey(t, d, check.KeyState)
	assert.ErrorIs(t, s.Mark(ctx, domain.StatusPresent), check.ErrPersist)

	resumed, err := check.Start(ctx, a, NewSessionKV(d, ns), testLogger())
	require.NoError(t, err)
	assert.True(t, resumed.Resumed())
	assert.Equal(t, before, resumed.State())
	assert.False(t, resumed.Results().Has("axe"), "results written alongside a failed state write are rolled back")
}

func TestSessionKVBacksCheckSession(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	kv := NewSessionKV(d, SessionNamespace("org-1", "app-1", "alice"))
	a := testAppliance("Pump 1")

	s, err := check.Start(ctx, a, kv, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Mark(ctx, domain.StatusMissing))

	resumed, err := check.Start(ctx, a, NewSessionKV(d, SessionNamespace("org-1", "app-1", "alice")), testLogger())
	require.NoError(t, err)
	assert.True(t, resumed.Resumed())
	assert.Equal(t, s.State(), resumed.State())
	res, ok := resumed.Results().Get("axe")
	require.True(t, ok)
	assert.Equal(t, domain.StatusMissing, res.Status)
}
