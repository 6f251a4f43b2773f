package check

import (
	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/inventory"
)

// Traversal derives progress from the inventory and the result store. It
// never mutates either.
type Traversal struct {
	index   *inventory.Index
	results *Results
}

func NewTraversal(index *inventory.Index, results *Results) *Traversal {
	return &Traversal{index: index, results: results}
}

// NextUnchecked returns the first id, in the order given, with no result.
func (t *Traversal) NextUnchecked(ids []string) (string, bool) {
	for _, id := range ids {
		if !t.results.Has(id) {
			return id, true
		}
	}
	return "", false
}

// LockerItemIDs lists the locker's top-level items in canonical order.
func LockerItemIDs(locker *domain.Locker) []string {
	items := inventory.FlattenLockerItems(locker)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func SubItemIDs(container *domain.Item) []string {
	ids := make([]string, len(container.SubItems))
	for i, sub := range container.SubItems {
		ids[i] = sub.ID
	}
	return ids
}

// IsLockerComplete is vacuously true for a locker with no items.
func (t *Traversal) IsLockerComplete(locker *domain.Locker) bool {
	_, pending := t.NextUnchecked(LockerItemIDs(locker))
	return !pending
}

// IsContainerComplete is vacuously true for a container with no sub-items.
func (t *Traversal) IsContainerComplete(container *domain.Item) bool {
	_, pending := t.NextUnchecked(SubItemIDs(container))
	return !pending
}

// RollUpContainerStatus aggregates the sub-item results of a container: any
// missing makes it partial, otherwise any note makes it note, else present.
func (t *Traversal) RollUpContainerStatus(containerID string) domain.Status {
	return rollUp(t.results.FilterByParent(containerID))
}

func rollUp(subResults []domain.CheckResult) domain.Status {
	status := domain.StatusPresent
	for _, res := range subResults {
		switch res.Status {
		case domain.StatusMissing:
			return domain.StatusPartial
		case domain.StatusNote:
			status = domain.StatusNote
		}
	}
	return status
}

// LockerCheckStatus reports complete when every top-level item has a result,
// untouched when none has, partial otherwise. Empty lockers are complete.
func (t *Traversal) LockerCheckStatus(locker *domain.Locker) domain.LockerStatus {
	ids := LockerItemIDs(locker)
	checked := 0
	for _, id := range ids {
		if t.results.Has(id) {
			checked++
		}
	}
	switch {
	case checked == len(ids):
		return domain.LockerComplete
	case checked == 0:
		return domain.LockerUntouched
	default:
		return domain.LockerPartial
	}
}
