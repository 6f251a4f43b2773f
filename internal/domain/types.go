package domain

import "time"

type ItemType string

const (
	ItemTypeItem      ItemType = "item"
	ItemTypeContainer ItemType = "container"
)

type Appliance struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Name      string    `json:"name"`
	Lockers   []Locker  `json:"lockers"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Locker struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Shelves []Shelf `json:"shelves"`
}

type Shelf struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Item is a piece of equipment on a shelf. Containers carry one level of
// SubItems; plain items never do.
type Item struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Desc     string    `json:"desc"`
	Img      string    `json:"img"`
	Type     ItemType  `json:"type"`
	SubItems []SubItem `json:"subItems"`
}

func (i Item) IsContainer() bool {
	return i.Type == ItemTypeContainer
}

type SubItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
	Img  string `json:"img"`
}

// Status is the outcome recorded against a checked item. StatusUntouched is
// never stored; it marks the absence of a result.
type Status string

const (
	StatusPresent   Status = "present"
	StatusMissing   Status = "missing"
	StatusNote      Status = "note"
	StatusPartial   Status = "partial"
	StatusUntouched Status = "untouched"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusMissing, StatusNote, StatusPartial, StatusUntouched:
		return true
	}
	return false
}

// IsIssue reports whether the status should be surfaced on a summary.
func (s Status) IsIssue() bool {
	return s == StatusMissing || s == StatusNote || s == StatusPartial
}

type CheckResult struct {
	LockerID     string `json:"lockerId"`
	LockerName   string `json:"lockerName"`
	ItemID       string `json:"itemId"`
	ItemName     string `json:"itemName"`
	ItemImg      string `json:"itemImg"`
	Status       Status `json:"status"`
	Note         string `json:"note"`
	ParentItemID string `json:"parentItemId,omitempty"`
}

// LockerStatus is the aggregate check progress of a locker.
type LockerStatus string

const (
	LockerComplete  LockerStatus = "complete"
	LockerPartial   LockerStatus = "partial"
	LockerUntouched LockerStatus = "untouched"
)

// CheckMarker is the advisory "check in progress" flag held for an appliance.
type CheckMarker struct {
	OrgID       string    `json:"orgId"`
	ApplianceID string    `json:"applianceId"`
	User        string    `json:"user"`
	StartedAt   time.Time `json:"startedAt"`
}
