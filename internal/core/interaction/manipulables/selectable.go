package manipulables

import (
	"github.com/zeusync/grab/internal/core/events"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
)

// SelectionMode decides what selects a Selectable.
type SelectionMode uint8

const (
	// HoldToSelect selects exactly while grabbed.
	HoldToSelect SelectionMode = iota
	// TapToToggle flips the selection on every tap.
	TapToToggle
)

func (m SelectionMode) String() string {
	if m == HoldToSelect {
		return "hold"
	}
	return "toggle"
}

// SelectionEvent is the bus payload of EventSelectionChanged.
type SelectionEvent struct {
	Manipulable string `json:"manipulable"`
	Manipulator string `json:"manipulator,omitempty"`
	Selected    bool   `json:"selected"`
}

type Selectable struct {
	*Grabbable
	mode     SelectionMode
	selected bool

	onChanged    events.Observers[interaction.ManipulationHandler]
	onSelected   events.Observers[interaction.ManipulationHandler]
	onDeselected events.Observers[interaction.ManipulationHandler]
}

func NewSelectable(s *interaction.Session, node *spatial.Node, opts ...Option) *Selectable {
	c := newConfig(opts)
	x := &Selectable{Grabbable: newGrabbable(c), mode: c.selection}
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	x.watchReleases()
	x.OnTap(func(m *interaction.Manipulation) {
		if x.mode == TapToToggle {
			x.SetSelected(!x.selected, m)
		}
	})
	return x
}

func (x *Selectable) Mode() SelectionMode { return x.mode }
func (x *Selectable) IsSelected() bool    { return x.selected }

func (x *Selectable) OnSelectionChanged(fn interaction.ManipulationHandler) func() {
	return x.onChanged.Add(fn)
}

func (x *Selectable) OnSelected(fn interaction.ManipulationHandler) func() {
	return x.onSelected.Add(fn)
}

func (x *Selectable) OnDeselected(fn interaction.ManipulationHandler) func() {
	return x.onDeselected.Add(fn)
}

func (x *Selectable) InitializeManipulation(m *interaction.Manipulation) {
	x.Grabbable.InitializeManipulation(m)
	if x.mode == HoldToSelect {
		x.SetSelected(true, m)
	}
}

func (x *Selectable) FinalizeManipulation(m *interaction.Manipulation) {
	x.Grabbable.FinalizeManipulation(m)
	if x.mode == HoldToSelect && !x.IsGrabbed() {
		x.SetSelected(false, m)
	}
}

// SetSelected changes the selection. Observers only run on an actual change; m may be
// nil for changes not caused by a manipulator.
func (x *Selectable) SetSelected(selected bool, m *interaction.Manipulation) {
	if x.selected == selected {
		return
	}
	x.selected = selected
	visit := func(fn interaction.ManipulationHandler) { fn(m) }
	x.onChanged.Each(visit)
	if selected {
		x.onSelected.Each(visit)
	} else {
		x.onDeselected.Each(visit)
	}
	ev := SelectionEvent{Manipulable: x.Name(), Selected: selected}
	if m != nil {
		ev.Manipulator = m.Manipulator().Name()
	}
	x.Session().Publish(EventSelectionChanged, x.Name(), ev)
}
