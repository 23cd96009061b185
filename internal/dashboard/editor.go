package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
)

type EditorState int

const (
	EditorViewing EditorState = iota
	EditorEditing
	EditorSaving
)

func (s EditorState) String() string {
	switch s {
	case EditorViewing:
		return "viewing"
	case EditorEditing:
		return "editing"
	case EditorSaving:
		return "saving"
	default:
		return "unknown"
	}
}

func (s EditorState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	ErrNotEditing = errors.New("threshold editor is not in edit mode")

	// ErrSaveSuperseded is returned by a save that finished after the editor
	// was reset for another device. Its result was discarded.
	ErrSaveSuperseded = errors.New("threshold save superseded by reset")
)

type EditorView struct {
	State EditorState `json:"state"`
	Value float64     `json:"value"`
	Draft float64     `json:"draft"`

	// Alert is set when the last save failed and cleared on the next edit.
	Alert string `json:"alert,omitempty"`
}

// ThresholdEditor is the view/edit/save cycle around one device threshold.
// The zero value is Viewing with a value of 0.
type ThresholdEditor struct {
	mu    sync.Mutex
	state EditorState
	value float64
	draft float64
	alert string

	// gen changes on every Reset so a save that outlives its device is
	// dropped.
	gen uint64
}

func NewThresholdEditor(value float64) *ThresholdEditor {
	return &ThresholdEditor{value: value, draft: value}
}

func (e *ThresholdEditor) View() EditorView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EditorView{State: e.state, Value: e.value, Draft: e.draft, Alert: e.alert}
}

// Edit enters Editing with the draft seeded from the current value.
func (e *ThresholdEditor) Edit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditorViewing {
		return
	}
	e.state = EditorEditing
	e.draft = e.value
	e.alert = ""
}

func (e *ThresholdEditor) SetDraft(v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditorEditing {
		return ErrNotEditing
	}
	e.draft = v
	return nil
}

func (e *ThresholdEditor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EditorEditing {
		return
	}
	e.state = EditorViewing
	e.draft = e.value
	e.alert = ""
}

// Reset discards any edit or pending save and shows value. Used when the
// selected device changes.
func (e *ThresholdEditor) Reset(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.state = EditorViewing
	e.value = value
	e.draft = value
	e.alert = ""
}

// Sync takes a freshly fetched value for the same device. An edit in progress
// keeps its draft.
func (e *ThresholdEditor) Sync(value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = value
	if e.state == EditorViewing {
		e.draft = value
	}
}

// Save submits the draft through save. On failure the editor returns to
// Editing with the draft intact and an alert set. A save that completes after
// a Reset is ignored and reported as ErrSaveSuperseded.
func (e *ThresholdEditor) Save(ctx context.Context, save func(context.Context, float64) (float64, error)) error {
	e.mu.Lock()
	if e.state != EditorEditing {
		e.mu.Unlock()
		return ErrNotEditing
	}
	draft := e.draft
	if err := api.ValidateThreshold(draft); err != nil {
		e.alert = err.Error()
		e.mu.Unlock()
		return err
	}
	e.state = EditorSaving
	e.alert = ""
	gen := e.gen
	e.mu.Unlock()

	saved, err := save(ctx, draft)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		return ErrSaveSuperseded
	}
	if err != nil {
		e.state = EditorEditing
		e.alert = "Failed to update threshold: " + api.Message(err)
		return err
	}
	e.state = EditorViewing
	e.value = saved
	e.draft = saved
	return nil
}
