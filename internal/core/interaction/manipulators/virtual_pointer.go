package manipulators

import (
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
)

const maxVirtualDepthFactor = 10

// VirtualPointer is a laser driven by code or scripts. Touches requested with StartTouch
// and EndTouch are applied in the next update phase.
type VirtualPointer struct {
	*Laser
	depthFactor  float64
	offsetEulers spatial.Vec3

	startTouch bool
	endTouch   bool
}

func NewVirtualPointer(s *interaction.Session, node *spatial.Node, opts ...interaction.ManipulatorOption) *VirtualPointer {
	v := &VirtualPointer{Laser: &Laser{}, depthFactor: 1}
	v.setup(s, node, v, v, opts)
	return v
}

// StartTouch grabs in the next update phase.
func (v *VirtualPointer) StartTouch() { v.startTouch = true }

// EndTouch releases in the next update phase.
func (v *VirtualPointer) EndTouch() { v.endTouch = true }

// SetDepthFactor pushes a held target to factor times its grab depth, within [0, 10].
// It resets to 1 on every grab.
func (v *VirtualPointer) SetDepthFactor(factor float64) {
	v.depthFactor = max(0, min(maxVirtualDepthFactor, factor))
}

// SetOffsetEulers turns held targets by the given angles on top of the laser direction.
func (v *VirtualPointer) SetOffsetEulers(e spatial.Vec3) { v.offsetEulers = e }

// DepthFactor applies only to targets that allow depth control.
func (v *VirtualPointer) DepthFactor() float64 {
	if mb := v.CurrentManipulable(); v.IsInteracting() && mb.DepthControl() {
		return v.depthFactor
	}
	return 1
}

func (v *VirtualPointer) OffsetRotation() spatial.Quat { return spatial.EulerVec(v.offsetEulers) }

// Update applies a pending touch. A start wins over an end requested in the same frame.
func (v *VirtualPointer) Update(float64) {
	switch {
	case v.startTouch:
		if !v.IsGrabbing() {
			v.Grab()
		}
		v.startTouch = false
	case v.endTouch:
		if v.IsGrabbing() {
			v.Release(true)
		}
		v.endTouch = false
	}
}

func (v *VirtualPointer) HandleGrab() {
	v.Laser.HandleGrab()
	v.startTouch = false
	v.depthFactor = 1
}

func (v *VirtualPointer) HandleRelease() {
	v.Laser.HandleRelease()
	v.endTouch = false
}
