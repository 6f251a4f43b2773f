// Package inventory provides read accessors over an appliance's locker tree.
// Lookups go through id-indexed maps built once per appliance so callers
// never hold pointers back into a tree that may be copied or replaced.
package inventory

import "github.com/vbonduro/applicheck/internal/domain"

// Ref locates an item or sub-item in the tree. Sub is non-nil for sub-items,
// in which case Item is the containing container.
type Ref struct {
	LockerID   string
	LockerName string
	Item       *domain.Item
	Sub        *domain.SubItem
}

func (r Ref) ID() string {
	if r.Sub != nil {
		return r.Sub.ID
	}
	return r.Item.ID
}

func (r Ref) Name() string {
	if r.Sub != nil {
		return r.Sub.Name
	}
	return r.Item.Name
}

func (r Ref) Img() string {
	if r.Sub != nil {
		return r.Sub.Img
	}
	return r.Item.Img
}

// ParentID is the container id for sub-items and "" for top-level items.
func (r Ref) ParentID() string {
	if r.Sub != nil {
		return r.Item.ID
	}
	return ""
}

func (r Ref) IsSubItem() bool { return r.Sub != nil }

// IsContainer reports whether the ref is a top-level container item.
func (r Ref) IsContainer() bool { return r.Sub == nil && r.Item.IsContainer() }

type Index struct {
	appliance *domain.Appliance
	lockers   map[string]*domain.Locker
	items     map[string]Ref
	subs      map[string]map[string]Ref
}

// NewIndex builds lookup maps over a private copy of the appliance.
func NewIndex(a *domain.Appliance) *Index {
	idx := &Index{
		appliance: a.Clone(),
		lockers:   make(map[string]*domain.Locker),
		items:     make(map[string]Ref),
		subs:      make(map[string]map[string]Ref),
	}
	for li := range idx.appliance.Lockers {
		locker := &idx.appliance.Lockers[li]
		if _, dup := idx.lockers[locker.ID]; !dup {
			idx.lockers[locker.ID] = locker
		}
		for si := range locker.Shelves {
			shelf := &locker.Shelves[si]
			for ii := range shelf.Items {
				item := &shelf.Items[ii]
				// First match in top-down order wins.
				if _, dup := idx.items[item.ID]; !dup {
					idx.items[item.ID] = Ref{LockerID: locker.ID, LockerName: locker.Name, Item: item}
				}
				if !item.IsContainer() {
					continue
				}
				children, ok := idx.subs[item.ID]
				if !ok {
					children = make(map[string]Ref, len(item.SubItems))
					idx.subs[item.ID] = children
				}
				for ci := range item.SubItems {
					sub := &item.SubItems[ci]
					if _, dup := children[sub.ID]; !dup {
						children[sub.ID] = Ref{LockerID: locker.ID, LockerName: locker.Name, Item: item, Sub: sub}
					}
				}
			}
		}
	}
	return idx
}

func (idx *Index) Appliance() *domain.Appliance { return idx.appliance }

func (idx *Index) Lockers() []domain.Locker { return idx.appliance.Lockers }

func (idx *Index) FirstLocker() (*domain.Locker, bool) {
	if len(idx.appliance.Lockers) == 0 {
		return nil, false
	}
	return &idx.appliance.Lockers[0], true
}

func (idx *Index) FindLocker(lockerID string) (*domain.Locker, bool) {
	l, ok := idx.lockers[lockerID]
	return l, ok
}

// FindItem looks up itemID within the sub-items of parentItemID when a parent
// is given, and among top-level items otherwise.
func (idx *Index) FindItem(itemID, parentItemID string) (Ref, bool) {
	if parentItemID != "" {
		ref, ok := idx.subs[parentItemID][itemID]
		return ref, ok
	}
	ref, ok := idx.items[itemID]
	return ref, ok
}

// FlattenLockerItems returns the locker's items in shelf order then item
// order. This is the canonical traversal order for a locker.
func FlattenLockerItems(locker *domain.Locker) []domain.Item {
	var items []domain.Item
	for _, shelf := range locker.Shelves {
		items = append(items, shelf.Items...)
	}
	return items
}

// PadShelves returns a copy of the locker with empty shelves appended until
// it has at least two.
func PadShelves(locker domain.Locker, newID func() string) domain.Locker {
	shelves := append([]domain.Shelf{}, locker.Shelves...)
	for len(shelves) < 2 {
		shelves = append(shelves, domain.Shelf{ID: newID(), Name: "", Items: []domain.Item{}})
	}
	locker.Shelves = shelves
	return locker
}
