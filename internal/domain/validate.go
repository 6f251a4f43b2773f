package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInventory = errors.New("invalid inventory")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInventory, fmt.Sprintf(format, args...))
}

// Validate checks the structural invariants of the inventory tree: every node
// has an id, item ids are unique across the appliance, and sub-items exist
// only on containers.
func (a *Appliance) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid("appliance name required")
	}

	lockerIDs := make(map[string]bool, len(a.Lockers))
	itemIDs := make(map[string]bool)
	for _, locker := range a.Lockers {
		if locker.ID == "" {
			return invalid("locker %q has no id", locker.Name)
		}
		if lockerIDs[locker.ID] {
			return invalid("duplicate locker id %s", locker.ID)
		}
		lockerIDs[locker.ID] = true

		for _, shelf := range locker.Shelves {
			if shelf.ID == "" {
				return invalid("shelf %q in locker %s has no id", shelf.Name, locker.ID)
			}
			for _, item := range shelf.Items {
				if err := validateItem(item, itemIDs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateItem(item Item, seen map[string]bool) error {
	if item.ID == "" {
		return invalid("item %q has no id", item.Name)
	}
	if seen[item.ID] {
		return invalid("duplicate item id %s", item.ID)
	}
	seen[item.ID] = true

	switch item.Type {
	case ItemTypeItem:
		if item.SubItems != nil {
			return invalid("item %s is not a container but has sub-items", item.ID)
		}
	case ItemTypeContainer:
		if item.SubItems == nil {
			return invalid("container %s has no sub-item list", item.ID)
		}
		for _, sub := range item.SubItems {
			if sub.ID == "" {
				return invalid("sub-item %q in container %s has no id", sub.Name, item.ID)
			}
			if seen[sub.ID] {
				return invalid("duplicate item id %s", sub.ID)
			}
			seen[sub.ID] = true
		}
	default:
		return invalid("item %s has unknown type %q", item.ID, item.Type)
	}
	return nil
}

// Clone returns a deep copy of the appliance's locker tree.
func (a *Appliance) Clone() *Appliance {
	out := *a
	out.Lockers = make([]Locker, len(a.Lockers))
	for i, locker := range a.Lockers {
		out.Lockers[i] = locker
		out.Lockers[i].Shelves = make([]Shelf, len(locker.Shelves))
		for j, shelf := range locker.Shelves {
			out.Lockers[i].Shelves[j] = shelf
			out.Lockers[i].Shelves[j].Items = make([]Item, len(shelf.Items))
			for k, item := range shelf.Items {
				copied := item
				if item.SubItems != nil {
					copied.SubItems = append([]SubItem{}, item.SubItems...)
				}
				out.Lockers[i].Shelves[j].Items[k] = copied
			}
		}
	}
	return &out
}

// Images returns every image URL referenced by the tree.
func (a *Appliance) Images() []string {
	var urls []string
	for _, locker := range a.Lockers {
		for _, shelf := range locker.Shelves {
			for _, item := range shelf.Items {
				if item.Img != "" {
					urls = append(urls, item.Img)
				}
				for _, sub := range item.SubItems {
					if sub.Img != "" {
						urls = append(urls, sub.Img)
					}
				}
			}
		}
	}
	return urls
}
