// Package report turns a finished check into the durable report snapshot and
// renders it for printing.
package report

import (
	"time"

	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/signature"
)

type SignOff struct {
	Name      string
	Signature signature.Signature
}

// Assemble copies the appliance's locker tree and annotates every item and
// sub-item with its result. Items without a result are untouched with an
// empty note.
func Assemble(a *domain.Appliance, results []domain.CheckResult, signOff SignOff, now time.Time) *domain.Report {
	byID := make(map[string]domain.CheckResult, len(results))
	for _, res := range results {
		byID[res.ItemID] = res
	}
	lookup := func(id string) (domain.Status, string) {
		res, ok := byID[id]
		if !ok || res.Status == "" {
			return domain.StatusUntouched, ""
		}
		return res.Status, res.Note
	}

	rep := &domain.Report{
		Date:          now.UTC().Format(time.RFC3339),
		ApplianceID:   a.ID,
		ApplianceName: a.Name,
		Lockers:       make([]domain.ReportLocker, 0, len(a.Lockers)),
		SignedName:    signOff.Name,
		Signature:     signature.Sanitize(signOff.Signature),
	}
	for _, locker := range a.Lockers {
		rl := domain.ReportLocker{ID: locker.ID, Name: locker.Name, Shelves: make([]domain.ReportShelf, 0, len(locker.Shelves))}
		for _, shelf := range locker.Shelves {
			rs := domain.ReportShelf{ID: shelf.ID, Name: shelf.Name, Items: make([]domain.ReportItem, 0, len(shelf.Items))}
			for _, item := range shelf.Items {
				ri := domain.ReportItem{ID: item.ID, Name: item.Name, Desc: item.Desc, Img: item.Img, Type: item.Type}
				ri.Status, ri.Note = lookup(item.ID)
				if item.IsContainer() {
					ri.SubItems = make([]domain.ReportSubItem, 0, len(item.SubItems))
					for _, sub := range item.SubItems {
						rsi := domain.ReportSubItem{ID: sub.ID, Name: sub.Name, Desc: sub.Desc, Img: sub.Img}
						rsi.Status, rsi.Note = lookup(sub.ID)
						ri.SubItems = append(ri.SubItems, rsi)
					}
				}
				rs.Items = append(rs.Items, ri)
			}
			rl.Shelves = append(rl.Shelves, rs)
		}
		rep.Lockers = append(rep.Lockers, rl)
	}
	return rep
}
