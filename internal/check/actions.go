package check

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/inventory"
	"github.com/vbonduro/applicheck/internal/report"
	"github.com/vbonduro/applicheck/internal/signature"
)

// ReportSaver persists a finished report and returns its id.
type ReportSaver interface {
	SaveReport(ctx context.Context, r *domain.Report) (string, error)
}

func (s *Session) requireOpen() error {
	if s.state.Screen == ScreenSaved || s.state.Screen == ScreenExited {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) requireScreen(screens ...Screen) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	for _, sc := range screens {
		if s.state.Screen == sc {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, s.state.Screen)
}

func (s *Session) currentLocker() (*domain.Locker, error) {
	locker, ok := s.index.FindLocker(s.state.LockerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockerNotFound, s.state.LockerID)
	}
	return locker, nil
}

func (s *Session) selected() (inventory.Ref, error) {
	if s.state.SelectedItemID == "" {
		return inventory.Ref{}, ErrNoSelection
	}
	parent := ""
	if s.state.IsInsideContainer {
		parent = s.state.ParentItemID
	}
	ref, ok := s.index.FindItem(s.state.SelectedItemID, parent)
	if !ok {
		return inventory.Ref{}, fmt.Errorf("%w: %s", ErrItemNotFound, s.state.SelectedItemID)
	}
	return ref, nil
}

// SelectItem points the session at an item of the current locker, or at a
// sub-item of the current container when parentItemID is given.
func (s *Session) SelectItem(ctx context.Context, itemID, parentItemID string) error {
	if err := s.requireScreen(ScreenLockerCheck, ScreenContainerCheck); err != nil {
		return err
	}
	if s.state.IsInsideContainer && parentItemID != s.state.ParentItemID {
		return fmt.Errorf("%w: finish the open container first", ErrInvalidTransition)
	}
	if !s.state.IsInsideContainer && parentItemID != "" {
		return fmt.Errorf("%w: enter the container first", ErrInvalidTransition)
	}
	ref, ok := s.index.FindItem(itemID, parentItemID)
	if !ok || ref.LockerID != s.state.LockerID {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	s.state.SelectedItemID = itemID
	s.state.NoteOpen = false
	return s.persist(ctx)
}

// Mark records present or missing for the selected item. A top-level
// container can only be marked missing without being entered; doing so
// discards any sub-item results it had.
func (s *Session) Mark(ctx context.Context, status domain.Status) error {
	if err := s.requireScreen(ScreenLockerCheck, ScreenContainerCheck); err != nil {
		return err
	}
	if status != domain.StatusPresent && status != domain.StatusMissing {
		return fmt.Errorf("%w: cannot mark %q directly", ErrInvalidTransition, status)
	}
	ref, err := s.selected()
	if err != nil {
		return err
	}

	if ref.IsContainer() {
		if status != domain.StatusMissing {
			return ErrContainerEntryRequired
		}
		s.results.RemoveByParent(ref.Item.ID)
	}
	s.record(ref, status, "")
	return s.afterWrite(ctx, ref)
}

// BeginNote opens the note dialog for the selected item. Nothing is recorded
// until ConfirmNote.
func (s *Session) BeginNote(ctx context.Context) error {
	if err := s.requireScreen(ScreenLockerCheck, ScreenContainerCheck); err != nil {
		return err
	}
	ref, err := s.selected()
	if err != nil {
		return err
	}
	if ref.IsContainer() {
		return ErrContainerEntryRequired
	}
	s.state.NoteOpen = true
	return s.persist(ctx)
}

// ConfirmNote records the note status for the selected item. Empty text is
// accepted.
func (s *Session) ConfirmNote(ctx context.Context, text string) error {
	if err := s.requireScreen(ScreenLockerCheck, ScreenContainerCheck); err != nil {
		return err
	}
	if !s.state.NoteOpen {
		return fmt.Errorf("%w: note dialog is not open", ErrInvalidTransition)
	}
	ref, err := s.selected()
	if err != nil {
		return err
	}
	s.state.NoteOpen = false
	s.record(ref, domain.StatusNote, strings.TrimSpace(text))
	return s.afterWrite(ctx, ref)
}

// CancelNote closes the note dialog leaving the item as it was.
func (s *Session) CancelNote(ctx context.Context) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if !s.state.NoteOpen {
		return nil
	}
	s.state.NoteOpen = false
	return s.persist(ctx)
}

func (s *Session) record(ref inventory.Ref, status domain.Status, note string) {
	s.results.Upsert(domain.CheckResult{
		LockerID:     ref.LockerID,
		LockerName:   ref.LockerName,
		ItemID:       ref.ID(),
		ItemName:     ref.Name(),
		ItemImg:      ref.Img(),
		Status:       status,
		Note:         note,
		ParentItemID: ref.ParentID(),
	})
}

// recordRollUp stores the container's aggregate as its own result.
func (s *Session) recordRollUp(container inventory.Ref) domain.Status {
	status := s.traversal.RollUpContainerStatus(container.Item.ID)
	s.results.Upsert(domain.CheckResult{
		LockerID:     container.LockerID,
		LockerName:   container.LockerName,
		ItemID:       container.Item.ID,
		ItemName:     container.Item.Name,
		ItemImg:      container.Item.Img,
		Status:       status,
		ParentItemID: container.Item.ID,
	})
	return status
}

// afterWrite either hands control back to the summary (recheck mode) or
// advances to the next unchecked item in the current scope. When the scope
// is exhausted the selection is cleared and the view offers finishing the
// container or choosing the next locker.
func (s *Session) afterWrite(ctx context.Context, ref inventory.Ref) error {
	if s.state.IsRechecking && !(ref.IsSubItem() && s.state.RecheckContainer) {
		if ref.IsSubItem() {
			s.refreshRollUp(ref.Item.ID)
		}
		s.state.Screen = ScreenSummary
		s.state.IsRechecking = false
		s.state.RecheckContainer = false
		s.state.IsInsideContainer = false
		s.state.ParentItemID = ""
		return s.persist(ctx)
	}
	if err := s.advance(); err != nil {
		return err
	}
	return s.persist(ctx)
}

// refreshRollUp recomputes a finished container's aggregate after one of its
// sub-items was rechecked.
func (s *Session) refreshRollUp(containerID string) {
	existing, ok := s.results.Get(containerID)
	if !ok || existing.ParentItemID != containerID {
		return
	}
	container, ok := s.index.FindItem(containerID, "")
	if !ok || !s.traversal.IsContainerComplete(container.Item) {
		return
	}
	s.recordRollUp(container)
}

func (s *Session) advance() error {
	var ids []string
	if s.state.IsInsideContainer {
		container, ok := s.index.FindItem(s.state.ParentItemID, "")
		if !ok {
			return fmt.Errorf("%w: %s", ErrItemNotFound, s.state.ParentItemID)
		}
		ids = SubItemIDs(container.Item)
		if s.state.RecheckContainer {
			// a re-walk visits every sub-item in order, checked or not
			s.state.SelectedItemID = nextAfter(ids, s.state.SelectedItemID)
			return nil
		}
	} else {
		locker, err := s.currentLocker()
		if err != nil {
			return err
		}
		ids = LockerItemIDs(locker)
	}
	s.state.SelectedItemID, _ = s.traversal.NextUnchecked(ids)
	return nil
}

func nextAfter(ids []string, current string) string {
	for i, id := range ids {
		if id == current && i+1 < len(ids) {
			return ids[i+1]
		}
	}
	return ""
}

// EnterContainer switches scope to the selected container's sub-items. An
// empty container is finished immediately. Entering a container that is
// itself being rechecked keeps the session inside it, advancing as usual,
// until FinishContainer hands control back to the summary.
func (s *Session) EnterContainer(ctx context.Context) error {
	if err := s.requireScreen(ScreenLockerCheck, ScreenContainerCheck); err != nil {
		return err
	}
	if s.state.IsInsideContainer {
		return ErrNestedContainer
	}
	ref, err := s.selected()
	if err != nil {
		return err
	}
	if !ref.IsContainer() {
		return ErrNotContainer
	}

	if len(ref.Item.SubItems) == 0 {
		s.recordRollUp(ref)
		return s.afterContainer(ctx, ref)
	}

	ids := SubItemIDs(ref.Item)
	first, ok := s.traversal.NextUnchecked(ids)
	if !ok {
		first = ids[0]
	}
	s.state.Screen = ScreenContainerCheck
	s.state.IsInsideContainer = true
	s.state.ParentItemID = ref.Item.ID
	s.state.SelectedItemID = first
	s.state.RecheckContainer = s.state.IsRechecking
	s.state.NoteOpen = false
	return s.persist(ctx)
}

// FinishContainer writes the container's rolled-up result and returns to
// locker scope. Every sub-item must have a result.
func (s *Session) FinishContainer(ctx context.Context) error {
	if err := s.requireScreen(ScreenContainerCheck); err != nil {
		return err
	}
	container, ok := s.index.FindItem(s.state.ParentItemID, "")
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, s.state.ParentItemID)
	}
	if !s.traversal.IsContainerComplete(container.Item) {
		return ErrContainerIncomplete
	}
	status := s.recordRollUp(container)
	s.logger.Debug("container finished", "item_id", container.Item.ID, "status", status)
	return s.afterContainer(ctx, container)
}

func (s *Session) afterContainer(ctx context.Context, container inventory.Ref) error {
	s.state.Screen = ScreenLockerCheck
	s.state.IsInsideContainer = false
	s.state.ParentItemID = ""
	s.state.SelectedItemID = container.Item.ID
	s.state.NoteOpen = false
	return s.afterWrite(ctx, container)
}

// ShowNextLocker leaves the current locker for the locker choice screen.
func (s *Session) ShowNextLocker(ctx context.Context) error {
	if err := s.requireScreen(ScreenLockerCheck); err != nil {
		return err
	}
	if s.state.IsRechecking {
		return fmt.Errorf("%w: return to the summary instead", ErrInvalidTransition)
	}
	s.state = State{Screen: ScreenNextLocker, LockerID: s.state.LockerID}
	return s.persist(ctx)
}

type LockerChoice struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Status domain.LockerStatus `json:"status"`
}

type NextLockerChoice struct {
	Lockers []LockerChoice `json:"lockers"`
	// SuggestedLockerID is the first locker that is not complete.
	SuggestedLockerID string `json:"suggestedLockerId,omitempty"`
	// AllComplete offers finishing the checks straight to the summary.
	AllComplete bool `json:"allComplete"`
}

func (s *Session) LockerChoices() NextLockerChoice {
	lockers := s.index.Lockers()
	choice := NextLockerChoice{Lockers: make([]LockerChoice, 0, len(lockers)), AllComplete: true}
	for i := range lockers {
		status := s.traversal.LockerCheckStatus(&lockers[i])
		choice.Lockers = append(choice.Lockers, LockerChoice{ID: lockers[i].ID, Name: lockers[i].Name, Status: status})
		if status != domain.LockerComplete {
			choice.AllComplete = false
			if choice.SuggestedLockerID == "" {
				choice.SuggestedLockerID = lockers[i].ID
			}
		}
	}
	return choice
}

// ChooseLocker starts checking lockerID at its first unchecked item, or its
// first item when it is already complete.
func (s *Session) ChooseLocker(ctx context.Context, lockerID string) error {
	if err := s.requireScreen(ScreenNextLocker); err != nil {
		return err
	}
	locker, ok := s.index.FindLocker(lockerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockerNotFound, lockerID)
	}
	ids := LockerItemIDs(locker)
	selected, ok := s.traversal.NextUnchecked(ids)
	if !ok && len(ids) > 0 {
		selected = ids[0]
	}
	s.state = State{Screen: ScreenLockerCheck, LockerID: locker.ID, SelectedItemID: selected}
	return s.persist(ctx)
}

// ShowSummary finishes the walk. Every locker must be complete.
func (s *Session) ShowSummary(ctx context.Context) error {
	if err := s.requireScreen(ScreenNextLocker); err != nil {
		return err
	}
	if !s.LockerChoices().AllComplete {
		return ErrChecksIncomplete
	}
	s.state = State{Screen: ScreenSummary}
	return s.persist(ctx)
}

// Recheck re-enters the check screens in recheck mode positioned at one item
// from the summary. The next write returns to the summary without advancing.
func (s *Session) Recheck(ctx context.Context, lockerID, itemID, parentItemID string) error {
	if err := s.requireScreen(ScreenSummary); err != nil {
		return err
	}
	if _, ok := s.index.FindLocker(lockerID); !ok {
		return fmt.Errorf("%w: %s", ErrLockerNotFound, lockerID)
	}
	ref, ok := s.index.FindItem(itemID, parentItemID)
	if !ok || ref.LockerID != lockerID {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if parentItemID != "" {
		// a container marked missing wholesale has no sub-results to revise
		if parent, ok := s.results.Get(parentItemID); ok && parent.ParentItemID != parentItemID {
			return fmt.Errorf("%w: container %s was marked %s", ErrInvalidTransition, parentItemID, parent.Status)
		}
	}

	s.state = State{
		Screen:            ScreenLockerCheck,
		LockerID:          lockerID,
		SelectedItemID:    itemID,
		ParentItemID:      parentItemID,
		IsInsideContainer: parentItemID != "",
		IsRechecking:      true,
	}
	if parentItemID != "" {
		s.state.Screen = ScreenContainerCheck
	}
	return s.persist(ctx)
}

// ReturnToSummary abandons a recheck or leaves the sign-off screen.
func (s *Session) ReturnToSummary(ctx context.Context) error {
	if err := s.requireScreen(ScreenLockerCheck, ScreenContainerCheck, ScreenSignOff); err != nil {
		return err
	}
	if s.state.Screen != ScreenSignOff && !s.state.IsRechecking {
		return fmt.Errorf("%w: not rechecking", ErrInvalidTransition)
	}
	s.state = State{Screen: ScreenSummary, LockerID: s.state.LockerID, SelectedItemID: s.state.SelectedItemID}
	return s.persist(ctx)
}

func (s *Session) BeginSignOff(ctx context.Context) error {
	if err := s.requireScreen(ScreenSummary); err != nil {
		return err
	}
	s.state = State{Screen: ScreenSignOff}
	return s.persist(ctx)
}

// SaveSignOffDraft stores the name and signature being entered. The
// signature is sanitized before it is kept.
func (s *Session) SaveSignOffDraft(ctx context.Context, name string, sig signature.Signature) error {
	if err := s.requireScreen(ScreenSignOff); err != nil {
		return err
	}
	s.signedName = name
	s.signature = signature.Sanitize(sig)
	return s.persistSignOff(ctx)
}

// ReportMeta carries the report fields that come from outside the session.
type ReportMeta struct {
	OrgID     string
	CreatedBy string
	Now       time.Time
}

// Finalize assembles the report from the signed-off session and hands it to
// saver. An incomplete sign-off is refused before saver is called. A failed
// save leaves the session untouched so it can be retried; a successful one
// ends the session.
func (s *Session) Finalize(ctx context.Context, saver ReportSaver, meta ReportMeta) (*domain.Report, error) {
	if err := s.requireScreen(ScreenSignOff); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(s.signedName)
	if name == "" || s.signature.IsEmpty() {
		return nil, ErrSignOffIncomplete
	}

	rep := report.Assemble(s.index.Appliance(), s.results.All(), report.SignOff{Name: name, Signature: s.signature}, meta.Now)
	rep.OrgID = meta.OrgID
	rep.CreatedBy = meta.CreatedBy

	id, err := saver.SaveReport(ctx, rep)
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	rep.ID = id
	s.logger.Info("check report saved", "report_id", id, "appliance_id", rep.ApplianceID, "results", s.results.Len())

	if err := s.end(ctx, ScreenSaved); err != nil {
		s.logger.Error("failed to clear session after report save", "report_id", id, "error", err)
	}
	return rep, nil
}

// Exit abandons the check without a report. confirmed must be true.
func (s *Session) Exit(ctx context.Context, confirmed bool) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if !confirmed {
		return ErrExitNotConfirmed
	}
	s.logger.Info("check session exited", "appliance_id", s.index.Appliance().ID, "results", s.results.Len())
	return s.end(ctx, ScreenExited)
}

func (s *Session) end(ctx context.Context, screen Screen) error {
	s.results = NewResults()
	s.traversal = NewTraversal(s.index, s.results)
	s.signedName = ""
	s.signature = signature.Signature{}
	s.state = State{Screen: screen}
	return Discard(ctx, s.store)
}
