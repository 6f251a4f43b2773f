package check

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/applicheck/internal/domain"
)

func TestResultsUpsertReplacesInPlace(t *testing.T) {
	r := NewResults()
	r.Upsert(domain.CheckResult{ItemID: "a", Status: domain.StatusPresent})
	r.Upsert(domain.CheckResult{ItemID: "b", Status: domain.StatusPresent})
	r.Upsert(domain.CheckResult{ItemID: "a", Status: domain.StatusMissing})

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ItemID)
	assert.Equal(t, domain.StatusMissing, all[0].Status)

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.StatusMissing, got.Status)
}

func TestResultsFilterByParentExcludesRollUp(t *testing.T) {
	r := NewResults(
		domain.CheckResult{ItemID: "s1", ParentItemID: "c"},
		domain.CheckResult{ItemID: "s2", ParentItemID: "c"},
		domain.CheckResult{ItemID: "c", ParentItemID: "c", Status: domain.StatusPresent},
		domain.CheckResult{ItemID: "x"},
	)

	subs := r.FilterByParent("c")
	require.Len(t, subs, 2)
	assert.Equal(t, "s1", subs[0].ItemID)
	assert.Equal(t, "s2", subs[1].ItemID)
}

func TestResultsRemoveByParent(t *testing.T) {
	r := NewResults(
		domain.CheckResult{ItemID: "s1", ParentItemID: "c"},
		domain.CheckResult{ItemID: "x"},
		domain.CheckResult{ItemID: "s2", ParentItemID: "c"},
		domain.CheckResult{ItemID: "c", ParentItemID: "c"},
	)

	r.RemoveByParent("c")

	assert.False(t, r.Has("s1"))
	assert.False(t, r.Has("s2"))
	assert.True(t, r.Has("x"))
	assert.True(t, r.Has("c"))
	assert.Equal(t, 2, r.Len())

	r.Upsert(domain.CheckResult{ItemID: "x", Status: domain.StatusNote})
	got, _ := r.Get("x")
	assert.Equal(t, domain.StatusNote, got.Status)
}

func TestResultsRemove(t *testing.T) {
	r := NewResults(domain.CheckResult{ItemID: "a"}, domain.CheckResult{ItemID: "b"})
	r.Remove("a")
	r.Remove("missing")

	assert.False(t, r.Has("a"))
	assert.True(t, r.Has("b"))
}

func TestResultsJSON(t *testing.T) {
	empty, err := json.Marshal(NewResults())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(empty))

	r := NewResults(domain.CheckResult{ItemID: "a", Status: domain.StatusPresent, LockerID: "L"})
	data, err := json.Marshal(r)
	require.NoError(t, err)

	decoded := NewResults()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, r.All(), decoded.All())
	assert.True(t, decoded.Has("a"))
}
