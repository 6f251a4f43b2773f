package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vbonduro/applicheck/internal/check"
	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/metrics"
	"github.com/vbonduro/applicheck/internal/signature"
)

type applianceReader interface {
	GetByID(ctx context.Context, id string) (*domain.Appliance, error)
}

type markerRepository interface {
	Start(ctx context.Context, orgID, applianceID, user string, at time.Time) error
	Complete(ctx context.Context, orgID, applianceID string) error
	Status(ctx context.Context, orgID, applianceID string) (*domain.CheckMarker, error)
}

// SessionStoreFactory returns the persistent store for one user's check of
// one appliance.
type SessionStoreFactory func(orgID, applianceID, user string) check.SessionStore

// Action types accepted by CheckService.Act.
const (
	ActSelectItem      = "select_item"
	ActMark            = "mark"
	ActBeginNote       = "begin_note"
	ActConfirmNote     = "confirm_note"
	ActCancelNote      = "cancel_note"
	ActEnterContainer  = "enter_container"
	ActFinishContainer = "finish_container"
	ActNextLocker      = "next_locker"
	ActChooseLocker    = "choose_locker"
	ActShowSummary     = "show_summary"
	ActRecheck         = "recheck"
	ActReturnToSummary = "return_to_summary"
	ActBeginSignOff    = "begin_sign_off"
	ActSaveSignOff     = "save_sign_off"
)

// CheckAction is one user interaction with a check in progress.
type CheckAction struct {
	Type         string              `json:"type"`
	ItemID       string              `json:"itemId,omitempty"`
	ParentItemID string              `json:"parentItemId,omitempty"`
	LockerID     string              `json:"lockerId,omitempty"`
	Status       domain.Status       `json:"status,omitempty"`
	Note         string              `json:"note,omitempty"`
	Name         string              `json:"name,omitempty"`
	Signature    signature.Signature `json:"signature"`
}

type CheckStatus struct {
	Marker    *domain.CheckMarker `json:"marker"`
	Resumable bool                `json:"resumable"`
}

// CheckService runs check sessions over HTTP-style request/response calls.
// Every call reloads the session from its store against the latest
// inventory, so edits made while a check is open are picked up and sessions
// survive restarts. Calls for the same user and appliance are serialized.
type CheckService struct {
	appliances applianceReader
	markers    markerRepository
	reports    check.ReportSaver
	sessions   SessionStoreFactory
	authz      Authorizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock serializes one user's requests against one appliance. refs counts
// holders and waiters; the entry is dropped when it reaches zero.
type keyLock struct {
	sync.Mutex
	refs int
}

func NewCheckService(
	appliances applianceReader,
	markers markerRepository,
	reports check.ReportSaver,
	sessions SessionStoreFactory,
	authz Authorizer,
	m *metrics.Metrics,
	logger *slog.Logger,
) *CheckService {
	return &CheckService{
		appliances: appliances,
		markers:    markers,
		reports:    reports,
		sessions:   sessions,
		authz:      authz,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		locks:      make(map[string]*keyLock),
	}
}

func (s *CheckService) lock(id Identity, applianceID string) func() {
	key := id.OrgID + "/" + applianceID + "/" + id.User
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Status reports the appliance's check marker and whether the caller has a
// session to resume.
func (s *CheckService) Status(ctx context.Context, id Identity, applianceID string) (*CheckStatus, error) {
	if _, err := loadAppliance(ctx, s.appliances, id, applianceID); err != nil {
		return nil, err
	}
	marker, err := s.markers.Status(ctx, id.OrgID, applianceID)
	if err != nil {
		return nil, err
	}
	resumable, err := check.InProgress(ctx, s.sessions(id.OrgID, applianceID, id.User))
	if err != nil {
		return nil, err
	}
	return &CheckStatus{Marker: marker, Resumable: resumable}, nil
}

// Start opens a check. A marker held by another user is refused with an
// *InProgressError unless forceNew is set. Without forceNew the caller's own
// session is resumed when there is one; with it any such session is
// discarded and the check starts at the first locker.
func (s *CheckService) Start(ctx context.Context, id Identity, applianceID string, forceNew bool) (*check.View, error) {
	if err := s.authz.Authorize(ctx, id, ActionCheck); err != nil {
		return nil, err
	}
	a, err := loadAppliance(ctx, s.appliances, id, applianceID)
	if err != nil {
		return nil, err
	}
	defer s.lock(id, applianceID)()

	marker, err := s.markers.Status(ctx, id.OrgID, applianceID)
	if err != nil {
		return nil, err
	}
	if marker != nil && marker.User != id.User && !forceNew {
		return nil, &InProgressError{Marker: marker}
	}

	store := s.sessions(id.OrgID, applianceID, id.User)
	if forceNew {
		if err := check.Discard(ctx, store); err != nil {
			return nil, err
		}
	}
	session, err := check.Start(ctx, a, store, s.logger.With("appliance_id", applianceID, "user", id.User))
	if err != nil {
		return nil, err
	}

	if marker == nil || marker.User != id.User || forceNew {
		if err := s.markers.Start(ctx, id.OrgID, applianceID, id.User, s.now()); err != nil {
			return nil, err
		}
	}
	s.metrics.ChecksStarted.WithLabelValues(strconv.FormatBool(session.Resumed())).Inc()

	v := session.View()
	return &v, nil
}

// open reloads the caller's session against the latest inventory.
func (s *CheckService) open(ctx context.Context, id Identity, applianceID string) (*check.Session, error) {
	if err := s.authz.Authorize(ctx, id, ActionCheck); err != nil {
		return nil, err
	}
	a, err := loadAppliance(ctx, s.appliances, id, applianceID)
	if err != nil {
		return nil, err
	}
	store := s.sessions(id.OrgID, applianceID, id.User)
	ok, err := check.InProgress(ctx, store)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSession
	}
	return check.Start(ctx, a, store, s.logger.With("appliance_id", applianceID, "user", id.User))
}

func (s *CheckService) View(ctx context.Context, id Identity, applianceID string) (*check.View, error) {
	defer s.lock(id, applianceID)()
	session, err := s.open(ctx, id, applianceID)
	if err != nil {
		return nil, err
	}
	v := session.View()
	return &v, nil
}

// Act applies one interaction and returns the resulting screen.
func (s *CheckService) Act(ctx context.Context, id Identity, applianceID string, act CheckAction) (*check.View, error) {
	defer s.lock(id, applianceID)()
	session, err := s.open(ctx, id, applianceID)
	if err != nil {
		return nil, err
	}

	before := session.Results().Len()
	if err := s.apply(ctx, session, act); err != nil {
		return nil, err
	}
	s.record(session, act, before)

	v := session.View()
	return &v, nil
}

func (s *CheckService) apply(ctx context.Context, session *check.Session, act CheckAction) error {
	switch act.Type {
	case ActSelectItem:
		return session.SelectItem(ctx, act.ItemID, act.ParentItemID)
	case ActMark:
		return session.Mark(ctx, act.Status)
	case ActBeginNote:
		return session.BeginNote(ctx)
	case ActConfirmNote:
		return session.ConfirmNote(ctx, act.Note)
	case ActCancelNote:
		return session.CancelNote(ctx)
	case ActEnterContainer:
		return session.EnterContainer(ctx)
	case ActFinishContainer:
		return session.FinishContainer(ctx)
	case ActNextLocker:
		return session.ShowNextLocker(ctx)
	case ActChooseLocker:
		return session.ChooseLocker(ctx, act.LockerID)
	case ActShowSummary:
		return session.ShowSummary(ctx)
	case ActRecheck:
		return session.Recheck(ctx, act.LockerID, act.ItemID, act.ParentItemID)
	case ActReturnToSummary:
		return session.ReturnToSummary(ctx)
	case ActBeginSignOff:
		return session.BeginSignOff(ctx)
	case ActSaveSignOff:
		return session.SaveSignOffDraft(ctx, act.Name, act.Signature)
	}
	return invalidf("unknown action %q", act.Type)
}

func (s *CheckService) record(session *check.Session, act CheckAction, before int) {
	switch act.Type {
	case ActMark:
		s.metrics.ResultsRecorded.WithLabelValues(string(act.Status)).Inc()
	case ActConfirmNote:
		s.metrics.ResultsRecorded.WithLabelValues(string(domain.StatusNote)).Inc()
	case ActFinishContainer:
		s.metrics.ContainersFinished.Inc()
	case ActEnterContainer:
		if session.Results().Len() > before {
			s.metrics.ContainersFinished.Inc()
		}
	}
}

// Finalize saves the signed-off report and releases the appliance's marker.
func (s *CheckService) Finalize(ctx context.Context, id Identity, applianceID string) (*domain.Report, error) {
	defer s.lock(id, applianceID)()
	session, err := s.open(ctx, id, applianceID)
	if err != nil {
		return nil, err
	}
	rep, err := session.Finalize(ctx, s.reports, check.ReportMeta{OrgID: id.OrgID, CreatedBy: id.User, Now: s.now()})
	if err != nil {
		return nil, err
	}
	s.metrics.ReportsSaved.Inc()
	s.releaseMarker(ctx, id, applianceID)
	return rep, nil
}

// Exit abandons the caller's check. confirmed must be true.
func (s *CheckService) Exit(ctx context.Context, id Identity, applianceID string, confirmed bool) error {
	defer s.lock(id, applianceID)()
	session, err := s.open(ctx, id, applianceID)
	if err != nil {
		return err
	}
	if err := session.Exit(ctx, confirmed); err != nil {
		return err
	}
	s.metrics.SessionsExited.Inc()
	s.releaseMarker(ctx, id, applianceID)
	return nil
}

// releaseMarker clears the marker if the caller still holds it. Failures are
// logged only; the marker is advisory.
func (s *CheckService) releaseMarker(ctx context.Context, id Identity, applianceID string) {
	marker, err := s.markers.Status(ctx, id.OrgID, applianceID)
	if err == nil && (marker == nil || marker.User != id.User) {
		return
	}
	if err == nil {
		err = s.markers.Complete(ctx, id.OrgID, applianceID)
	}
	if err != nil {
		s.logger.Warn("failed to release check marker", "appliance_id", applianceID, "user", id.User, "error", err)
	}
}

// IsModelError reports whether err means the session referenced inventory
// that no longer exists or an action the current screen does not allow.
func IsModelError(err error) bool {
	for _, target := range []error{
		check.ErrLockerNotFound,
		check.ErrItemNotFound,
		check.ErrInvalidTransition,
		check.ErrSessionClosed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err is an input the user can correct.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalid,
		domain.ErrInvalidInventory,
		check.ErrNoSelection,
		check.ErrContainerEntryRequired,
		check.ErrNotContainer,
		check.ErrNestedContainer,
		check.ErrContainerIncomplete,
		check.ErrChecksIncomplete,
		check.ErrSignOffIncomplete,
		check.ErrExitNotConfirmed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
