package check

import (
	"encoding/json"

	"github.com/vbonduro/applicheck/internal/domain"
)

// Results is the per-session collection of check results, unique by item id.
type Results struct {
	list  []domain.CheckResult
	index map[string]int
}

func NewResults(results ...domain.CheckResult) *Results {
	r := &Results{index: make(map[string]int)}
	for _, res := range results {
		r.Upsert(res)
	}
	return r
}

// Upsert replaces the result with the same item id in place, or appends.
func (r *Results) Upsert(res domain.CheckResult) {
	if i, ok := r.index[res.ItemID]; ok {
		r.list[i] = res
		return
	}
	r.index[res.ItemID] = len(r.list)
	r.list = append(r.list, res)
}

func (r *Results) Get(itemID string) (domain.CheckResult, bool) {
	i, ok := r.index[itemID]
	if !ok {
		return domain.CheckResult{}, false
	}
	return r.list[i], true
}

func (r *Results) Has(itemID string) bool {
	_, ok := r.index[itemID]
	return ok
}

// FilterByParent returns results recorded against sub-items of parentItemID.
// A container's own rolled-up result carries its id as parent and is excluded.
func (r *Results) FilterByParent(parentItemID string) []domain.CheckResult {
	var out []domain.CheckResult
	for _, res := range r.list {
		if res.ParentItemID == parentItemID && res.ItemID != parentItemID {
			out = append(out, res)
		}
	}
	return out
}

func (r *Results) Remove(itemID string) {
	if _, ok := r.index[itemID]; !ok {
		return
	}
	r.rebuild(func(res domain.CheckResult) bool { return res.ItemID != itemID })
}

// RemoveByParent drops every sub-item result of parentItemID.
func (r *Results) RemoveByParent(parentItemID string) {
	r.rebuild(func(res domain.CheckResult) bool {
		return res.ParentItemID != parentItemID || res.ItemID == parentItemID
	})
}

func (r *Results) rebuild(keep func(domain.CheckResult) bool) {
	kept := r.list[:0]
	for _, res := range r.list {
		if keep(res) {
			kept = append(kept, res)
		}
	}
	r.list = kept
	r.index = make(map[string]int, len(kept))
	for i, res := range kept {
		r.index[res.ItemID] = i
	}
}

// All returns a copy of the results in insertion order.
func (r *Results) All() []domain.CheckResult {
	return append([]domain.CheckResult{}, r.list...)
}

func (r *Results) Len() int { return len(r.list) }

func (r *Results) MarshalJSON() ([]byte, error) {
	if r.list == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.list)
}

func (r *Results) UnmarshalJSON(data []byte) error {
	var list []domain.CheckResult
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*r = *NewResults(list...)
	return nil
}
