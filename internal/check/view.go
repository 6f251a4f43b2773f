package check

import (
	"strings"

	"github.com/vbonduro/applicheck/internal/domain"
	"github.com/vbonduro/applicheck/internal/inventory"
)

// View is everything a renderer needs to draw the current screen.
type View struct {
	State     State             `json:"state"`
	Locker    *LockerView       `json:"locker,omitempty"`
	Container *ItemView         `json:"container,omitempty"`
	Item      *ItemView         `json:"item,omitempty"`
	Actions   Actions           `json:"actions"`
	Choice    *NextLockerChoice `json:"choice,omitempty"`
	Summary   *Summary          `json:"summary,omitempty"`
	SignOff   *SignOffView      `json:"signOff,omitempty"`
}

type LockerView struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Status  domain.LockerStatus `json:"status"`
	Checked int                 `json:"checked"`
	Total   int                 `json:"total"`
}

type ItemView struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Desc         string              `json:"desc"`
	Img          string              `json:"img"`
	IsContainer  bool                `json:"isContainer"`
	ParentItemID string              `json:"parentItemId,omitempty"`
	Result       *domain.CheckResult `json:"result,omitempty"`
}

// Actions lists the controls available on the current screen.
type Actions struct {
	Mark            bool `json:"mark"`
	EnterContainer  bool `json:"enterContainer"`
	MarkMissing     bool `json:"markMissing"`
	FinishContainer bool `json:"finishContainer"`
	NextLocker      bool `json:"nextLocker"`
	FinishChecks    bool `json:"finishChecks"`
	ReturnToSummary bool `json:"returnToSummary"`
	Finalize        bool `json:"finalize"`
}

type SignOffView struct {
	SignedName   string `json:"signedName"`
	HasSignature bool   `json:"hasSignature"`
}

func (s *Session) View() View {
	v := View{State: s.state}
	switch s.state.Screen {
	case ScreenLockerCheck, ScreenContainerCheck:
		s.checkView(&v)
	case ScreenNextLocker:
		choice := s.LockerChoices()
		v.Choice = &choice
		v.Actions.FinishChecks = choice.AllComplete
	case ScreenSummary:
		sum := s.Summary()
		v.Summary = &sum
	case ScreenSignOff:
		v.SignOff = &SignOffView{SignedName: s.signedName, HasSignature: !s.signature.IsEmpty()}
		v.Actions.ReturnToSummary = true
		v.Actions.Finalize = strings.TrimSpace(s.signedName) != "" && !s.signature.IsEmpty()
	}
	return v
}

func (s *Session) checkView(v *View) {
	locker, ok := s.index.FindLocker(s.state.LockerID)
	if !ok {
		return
	}
	ids := LockerItemIDs(locker)
	checked := 0
	for _, id := range ids {
		if s.results.Has(id) {
			checked++
		}
	}
	v.Locker = &LockerView{
		ID:      locker.ID,
		Name:    locker.Name,
		Status:  s.traversal.LockerCheckStatus(locker),
		Checked: checked,
		Total:   len(ids),
	}
	v.Actions.ReturnToSummary = s.state.IsRechecking

	if s.state.IsInsideContainer {
		if container, ok := s.index.FindItem(s.state.ParentItemID, ""); ok {
			v.Container = s.itemView(container)
			v.Actions.FinishContainer = s.traversal.IsContainerComplete(container.Item)
		}
	} else {
		v.Actions.NextLocker = !s.state.IsRechecking && s.traversal.IsLockerComplete(locker)
	}

	ref, err := s.selected()
	if err != nil {
		return
	}
	v.Item = s.itemView(ref)
	if ref.IsContainer() {
		v.Actions.EnterContainer = true
		v.Actions.MarkMissing = true
	} else {
		v.Actions.Mark = true
	}
}

func (s *Session) itemView(ref inventory.Ref) *ItemView {
	iv := &ItemView{
		ID:           ref.ID(),
		Name:         ref.Name(),
		Img:          ref.Img(),
		IsContainer:  ref.IsContainer(),
		ParentItemID: ref.ParentID(),
	}
	if ref.Sub != nil {
		iv.Desc = ref.Sub.Desc
	} else {
		iv.Desc = ref.Item.Desc
	}
	if res, ok := s.results.Get(iv.ID); ok {
		iv.Result = &res
	}
	return iv
}
