package manipulators

import (
	"github.com/zeusync/grab/internal/core/device"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

const (
	defaultHolderStrength     = 0.25
	defaultHolderReleaseRange = 0.1
)

// ItemHolder grabs any position-coupled object that comes within its release range and
// keeps it while the object still overlaps the holder. It never taps or long holds.
type ItemHolder struct {
	*interaction.Manipulator
	radiusOffset spatial.Vec3
	lastGrabbed  *interaction.Manipulable
}

// NewItemHolder defaults to strength 0.25 and release range 0.1; opts may override both.
func NewItemHolder(s *interaction.Session, node *spatial.Node, opts ...interaction.ManipulatorOption) *ItemHolder {
	h := &ItemHolder{}
	h.setup(s, node, h, opts)
	return h
}

func (h *ItemHolder) setup(s *interaction.Session, node *spatial.Node, outer interaction.Discoverer, opts []interaction.ManipulatorOption) {
	base := []interaction.ManipulatorOption{
		interaction.WithStrength(defaultHolderStrength),
		interaction.WithReleaseRange(defaultHolderReleaseRange),
		interaction.WithoutGestures(),
		interaction.WithoutIndicator(),
	}
	h.Manipulator = interaction.NewManipulator(s, node, outer, append(base, opts...)...)
}

// SetRadiusOffset holds objects offset from the holder by v times their radius, in the
// holder's local space.
func (h *ItemHolder) SetRadiusOffset(v spatial.Vec3) { h.radiusOffset = v }

// FixedUpdate grabs whatever is hovered unless it was let go of in this very step.
func (h *ItemHolder) FixedUpdate(dt float64) {
	h.Manipulator.FixedUpdate(dt)
	if h.CurrentManipulable() != h.lastGrabbed && !h.IsGrabbingManipulable() && h.CouldGrab() {
		h.Grab()
		return
	}
	h.lastGrabbed = nil
}

func (h *ItemHolder) HandleGrab() {}

func (h *ItemHolder) HandleRelease() { h.lastGrabbed = h.CurrentManipulable() }

// FindTargetCollider looks for a free position-coupled object around the grab point.
func (h *ItemHolder) FindTargetCollider() physics.Collider {
	s := h.Session()
	for _, c := range s.Physics().OverlapSphere(h.GrabPosition(), h.ReleaseRange(), h.IgnoreLayers()) {
		mb := h.ManipulableOf(c)
		if mb == nil || !IsPositionable(mb) || h.Node().IsChildOf(mb.Target()) {
			continue
		}
		if heldBy[*ItemSpawner](mb) {
			continue
		}
		return c
	}
	return nil
}

// ShouldRelease keeps the grab while the target overlaps the holder itself.
func (h *ItemHolder) ShouldRelease() bool {
	current := h.CurrentManipulable()
	for _, c := range h.Session().Physics().OverlapSphere(h.Node().Position(), h.ReleaseRange(), h.IgnoreLayers()) {
		if current != nil && h.ManipulableOf(c) == current {
			return false
		}
	}
	return h.ExceedsReleaseRange()
}

// ComputeTargetGrabPosition holds the target out by its radius along the radius offset.
func (h *ItemHolder) ComputeTargetGrabPosition() spatial.Vec3 {
	if h.IsInteracting() {
		return h.Node().TransformPoint(h.radiusOffset.Mul(h.CurrentManipulable().ApproxRadius()))
	}
	return h.Node().Position()
}

func (h *ItemHolder) AimIntersection() (spatial.Vec3, spatial.Vec3) {
	return h.GrabPosition(), h.radiusOffset
}

// HandleEnterManipulable hums when an object carried by a pointer arrives.
func (h *ItemHolder) HandleEnterManipulable() {
	if grabbedBy[*Pointer](h.CurrentManipulable()) {
		h.Session().PlayHaptics(device.TransitionHum4_40)
	}
}

func (h *ItemHolder) HandleExitManipulable() {
	if grabbedBy[*Pointer](h.LastManipulable()) {
		h.Session().PlayHaptics(device.RampDownShortSmooth50)
	}
}

// IsPositionable reports whether mb's behaviour couples the target position to its
// manipulators.
func IsPositionable(mb *interaction.Manipulable) bool {
	p, ok := mb.Behavior().(interface{ IsPositionable() bool })
	return ok && p.IsPositionable()
}

// heldBy reports whether a manipulator of concrete type T hovers mb.
func heldBy[T interaction.Discoverer](mb *interaction.Manipulable) bool {
	for _, m := range mb.Manipulations() {
		if _, ok := m.Manipulator().Discoverer().(T); ok {
			return true
		}
	}
	return false
}

// grabbedBy reports whether a manipulator of concrete type T grabs mb.
func grabbedBy[T interaction.Discoverer](mb *interaction.Manipulable) bool {
	if mb == nil {
		return false
	}
	for _, m := range mb.Manipulations() {
		if _, ok := m.Manipulator().Discoverer().(T); ok && m.IsGrabbed() {
			return true
		}
	}
	return false
}
