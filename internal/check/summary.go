package check

import (
	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/inventory"
)

type Summary struct {
	Lockers []SummaryLocker      `json:"lockers"`
	Issues  []domain.CheckResult `json:"issues"`
}

type SummaryLocker struct {
	LockerID   string              `json:"lockerId"`
	LockerName string              `json:"lockerName"`
	Status     domain.LockerStatus `json:"status"`
	Entries    []SummaryEntry      `json:"entries"`
}

// SummaryEntry is a top-level result with, for containers, the results of
// its sub-items nested beneath it. Result is nil for a container whose
// sub-items were checked but which was never finished.
type SummaryEntry struct {
	Result     *domain.CheckResult  `json:"result"`
	SubResults []domain.CheckResult `json:"subResults,omitempty"`
}

// Summary regroups the whole result store by locker, in inventory order.
// Results for items no longer in the inventory are left out.
func (s *Session) Summary() Summary {
	sum := Summary{Lockers: []SummaryLocker{}, Issues: []domain.CheckResult{}}
	lockers := s.index.Lockers()
	for li := range lockers {
		locker := &lockers[li]
		sl := SummaryLocker{
			LockerID:   locker.ID,
			LockerName: locker.Name,
			Status:     s.traversal.LockerCheckStatus(locker),
			Entries:    []SummaryEntry{},
		}
		for _, item := range inventory.FlattenLockerItems(locker) {
			entry := SummaryEntry{}
			if res, ok := s.results.Get(item.ID); ok {
				entry.Result = &res
				if res.Status.IsIssue() {
					sum.Issues = append(sum.Issues, res)
				}
			}
			for _, sub := range item.SubItems {
				if res, ok := s.results.Get(sub.ID); ok && res.ParentItemID == item.ID {
					entry.SubResults = append(entry.SubResults, res)
					if res.Status.IsIssue() {
						sum.Issues = append(sum.Issues, res)
					}
				}
			}
			if entry.Result != nil || len(entry.SubResults) > 0 {
				sl.Entries = append(sl.Entries, entry)
			}
		}
		sum.Lockers = append(sum.Lockers, sl)
	}
	return sum
}
