package domain

import (
	"time"

	"github.com/vbonduro/applicheck/internal/signature"
)

// Report is the immutable snapshot produced when a check is signed off.
type Report struct {
	ID            string              `json:"id"`
	OrgID         string              `json:"orgId"`
	Date          string              `json:"date"`
	ApplianceID   string              `json:"applianceId"`
	ApplianceName string              `json:"applianceName"`
	Lockers       []ReportLocker      `json:"lockers"`
	SignedName    string              `json:"signedName"`
	Signature     signature.Signature `json:"signature"`
	CreatedBy     string              `json:"createdBy,omitempty"`
}

type ReportLocker struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Shelves []ReportShelf `json:"shelves"`
}

type ReportShelf struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Items []ReportItem `json:"items"`
}

type ReportItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Desc     string          `json:"desc"`
	Img      string          `json:"img"`
	Type     ItemType        `json:"type"`
	Status   Status          `json:"status"`
	Note     string          `json:"note"`
	SubItems []ReportSubItem `json:"subItems,omitempty"`
}

type ReportSubItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Img    string `json:"img"`
	Status Status `json:"status"`
	Note   string `json:"note"`
}

// ReportHeader is the list view of a stored report.
type ReportHeader struct {
	ID            string    `json:"id"`
	OrgID         string    `json:"orgId"`
	ApplianceID   string    `json:"applianceId"`
	ApplianceName string    `json:"applianceName"`
	SignedName    string    `json:"signedName"`
	Date          string    `json:"date"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Issues returns every item or sub-item in the report whose status needs
// attention, in tree order.
func (r *Report) Issues() []ReportIssue {
	var issues []ReportIssue
	for _, locker := range r.Lockers {
		for _, shelf := range locker.Shelves {
			for _, item := range shelf.Items {
				if item.Status.IsIssue() {
					issues = append(issues, ReportIssue{LockerName: locker.Name, ItemName: item.Name, Status: item.Status, Note: item.Note})
				}
				for _, sub := range item.SubItems {
					if sub.Status.IsIssue() {
						issues = append(issues, ReportIssue{LockerName: locker.Name, ContainerName: item.Name, ItemName: sub.Name, Status: sub.Status, Note: sub.Note})
					}
				}
			}
		}
	}
	return issues
}

type ReportIssue struct {
	LockerName    string `json:"lockerName"`
	ContainerName string `json:"containerName,omitempty"`
	ItemName      string `json:"itemName"`
	Status        Status `json:"status"`
	Note          string `json:"note"`
}
