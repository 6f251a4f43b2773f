package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vbonduro/applicheck/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid request")
	ErrForbidden         = errors.New("forbidden")
	ErrCheckInProgress   = errors.New("check already in progress")
	ErrNoSession         = errors.New("no check in progress")
	ErrVisionUnavailable = errors.New("photo suggestions are not configured")
)

// InProgressError reports another user's check marker on the appliance.
type InProgressError struct {
	Marker *domain.CheckMarker
}

func (e *InProgressError) Error() string {
	return fmt.Sprintf("%s by %s since %s", ErrCheckInProgress, e.Marker.User, e.Marker.StartedAt.Format("15:04"))
}

func (e *InProgressError) Unwrap() error { return ErrCheckInProgress }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Identity is the caller as established by the transport layer.
type Identity struct {
	OrgID string
	User  string
}

type Action string

const (
	ActionEditInventory   Action = "inventory:edit"
	ActionDeleteAppliance Action = "appliance:delete"
	ActionCheck           Action = "check:run"
	ActionViewReports     Action = "reports:view"
)

// Authorizer decides whether a caller may perform an action. It returns an
// error wrapping ErrForbidden to refuse.
type Authorizer interface {
	Authorize(ctx context.Context, id Identity, action Action) error
}

type AllowAll struct{}

func (AllowAll) Authorize(context.Context, Identity, Action) error { return nil }
