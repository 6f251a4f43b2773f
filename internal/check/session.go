// Package check implements the check-session engine: walking an appliance's
// inventory in canonical order, recording per-item results, rolling container
// results up from their sub-items and gating the final report behind a
// sign-off. A Session is single-threaded; callers serialize access.
package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/inventory"
	"github.com/vbonduro/applicheck/internal/signature"
)

type Screen string

const (
	ScreenIdle           Screen = "idle"
	ScreenLockerCheck    Screen = "locker_check"
	ScreenContainerCheck Screen = "container_check"
	ScreenNextLocker     Screen = "next_locker"
	ScreenSummary        Screen = "summary"
	ScreenSignOff        Screen = "sign_off"
	ScreenSaved          Screen = "saved"
	ScreenExited         Screen = "exited"
)

var (
	ErrLockerNotFound         = errors.New("locker not found")
	ErrItemNotFound           = errors.New("item not found")
	ErrInvalidTransition      = errors.New("action not allowed on current screen")
	ErrNoSelection            = errors.New("no item selected")
	ErrContainerEntryRequired = errors.New("container must be entered or marked missing")
	ErrNotContainer           = errors.New("item is not a container")
	ErrNestedContainer        = errors.New("already inside a container")
	ErrContainerIncomplete    = errors.New("container has unchecked sub-items")
	ErrChecksIncomplete       = errors.New("not every locker is complete")
	ErrSignOffIncomplete      = errors.New("sign-off requires a name and a signature")
	ErrExitNotConfirmed       = errors.New("exit requires confirmation")
	ErrSessionClosed          = errors.New("check session has ended")
	ErrPersist                = errors.New("failed to persist check session")
)

// State is the session pointer persisted under KeyState.
type State struct {
	Screen            Screen `json:"screen"`
	LockerID          string `json:"lockerId"`
	SelectedItemID    string `json:"selectedItemId"`
	ParentItemID      string `json:"parentItemId"`
	IsInsideContainer bool   `json:"isInsideContainer"`
	IsRechecking      bool   `json:"isRechecking"`
	RecheckContainer  bool   `json:"recheckContainer,omitempty"`
	NoteOpen          bool   `json:"noteOpen,omitempty"`
}

type Session struct {
	index      *inventory.Index
	results    *Results
	traversal  *Traversal
	state      State
	signedName string
	signature  signature.Signature
	resumed    bool
	store      SessionStore
	logger     *slog.Logger
}

// Start resumes the session persisted in store when one is in progress, and
// otherwise begins a fresh check at the appliance's first locker.
func Start(ctx context.Context, appliance *domain.Appliance, store SessionStore, logger *slog.Logger) (*Session, error) {
	s := &Session{
		results: NewResults(),
		store:   store,
		logger:  logger,
	}
	s.setIndex(inventory.NewIndex(appliance))

	inProgress, _, err := store.Get(ctx, KeyInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if string(inProgress) == "true" {
		if err := s.load(ctx); err != nil {
			return nil, err
		}
		s.resumed = true
		s.logger.Info("check session resumed", "appliance_id", appliance.ID, "screen", s.state.Screen, "results", s.results.Len())
		if s.repair() {
			return s, s.persist(ctx)
		}
		return s, nil
	}

	s.state = State{Screen: ScreenNextLocker}
	if first, ok := s.index.FirstLocker(); ok {
		s.state = State{Screen: ScreenLockerCheck, LockerID: first.ID}
		s.state.SelectedItemID, _ = s.traversal.NextUnchecked(LockerItemIDs(first))
	}
	s.logger.Info("check session started", "appliance_id", appliance.ID, "locker_id", s.state.LockerID)
	return s, s.persist(ctx)
}

// Discard removes every persisted key of a session so the next Start begins
// afresh.
func Discard(ctx context.Context, store SessionStore) error {
	if err := store.Clear(ctx, sessionKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// InProgress reports whether store holds a resumable session.
func InProgress(ctx context.Context, store SessionStore) (bool, error) {
	v, _, err := store.Get(ctx, KeyInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to read session: %w", err)
	}
	return string(v) == "true", nil
}

func (s *Session) setIndex(idx *inventory.Index) {
	s.index = idx
	s.traversal = NewTraversal(idx, s.results)
}

// Refresh swaps in the latest inventory, for example after another user
// edited the appliance, and redirects if the session now points at something
// that no longer exists.
func (s *Session) Refresh(ctx context.Context, appliance *domain.Appliance) error {
	s.setIndex(inventory.NewIndex(appliance))
	if s.repair() {
		return s.persist(ctx)
	}
	return nil
}

func (s *Session) State() State { return s.state }

func (s *Session) Results() *Results { return s.results }

func (s *Session) Resumed() bool { return s.resumed }

func (s *Session) Traversal() *Traversal { return s.traversal }

func (s *Session) SignOffDraft() (string, signature.Signature) {
	return s.signedName, s.signature
}

func (s *Session) load(ctx context.Context) error {
	if raw, ok, err := s.store.Get(ctx, KeyResults); err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	} else if ok {
		if err := json.Unmarshal(raw, s.results); err != nil {
			return fmt.Errorf("failed to decode results: %w", err)
		}
	}
	if raw, ok, err := s.store.Get(ctx, KeyState); err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	} else if ok {
		if err := json.Unmarshal(raw, &s.state); err != nil {
			return fmt.Errorf("failed to decode state: %w", err)
		}
	}
	if raw, ok, err := s.store.Get(ctx, KeySignedName); err != nil {
		return fmt.Errorf("failed to read sign-off name: %w", err)
	} else if ok {
		s.signedName = string(raw)
	}
	if raw, ok, err := s.store.Get(ctx, KeySignature); err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	} else if ok {
		if err := json.Unmarshal(raw, &s.signature); err != nil {
			return fmt.Errorf("failed to decode signature: %w", err)
		}
	}
	if s.state.Screen == "" {
		s.state.Screen = ScreenNextLocker
	}
	return nil
}

func (s *Session) persist(ctx context.Context) error {
	results, err := json.Marshal(s.results)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	state, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	err = s.store.SetMany(ctx, map[string][]byte{
		KeyInProgress: []byte("true"),
		KeyResults:    results,
		KeyState:      state,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *Session) persistSignOff(ctx context.Context) error {
	sig, err := json.Marshal(s.signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	err = s.store.SetMany(ctx, map[string][]byte{
		KeySignedName: []byte(s.signedName),
		KeySignature:  sig,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// repair redirects the session to a safe screen when its pointer references
// a locker, container or item missing from the inventory. It reports whether
// the state changed.
func (s *Session) repair() bool {
	st := s.state
	if st.Screen != ScreenLockerCheck && st.Screen != ScreenContainerCheck {
		return false
	}

	reason := ""
	locker, ok := s.index.FindLocker(st.LockerID)
	switch {
	case !ok:
		reason = "locker"
	case st.IsInsideContainer:
		container, ok := s.index.FindItem(st.ParentItemID, "")
		if !ok || !container.IsContainer() || container.LockerID != locker.ID {
			reason = "container"
		} else if st.SelectedItemID != "" {
			if _, ok := s.index.FindItem(st.SelectedItemID, st.ParentItemID); !ok {
				reason = "item"
			}
		}
	case st.SelectedItemID != "":
		ref, ok := s.index.FindItem(st.SelectedItemID, "")
		if !ok || ref.LockerID != locker.ID {
			reason = "item"
		}
	}
	if reason == "" {
		return false
	}

	s.logger.Warn("check session references missing inventory, redirecting",
		"missing", reason,
		"locker_id", st.LockerID,
		"item_id", st.SelectedItemID,
		"parent_item_id", st.ParentItemID,
	)
	if st.IsRechecking {
		s.state = State{Screen: ScreenSummary}
	} else {
		s.state = State{Screen: ScreenNextLocker}
	}
	return true
}
