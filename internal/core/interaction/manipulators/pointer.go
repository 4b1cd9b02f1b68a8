package manipulators

import (
	"math"

	"github.com/zeusync/grab/internal/core/device"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
)

const (
	minRelativeTwist       = -60.0
	maxRelativeTwist       = 60.0
	defaultMaxDepthFactor  = 3.0
	touchSeparationPerSec  = 0.2
	defaultDepthExtendRate = 0.5
)

// Pointer is a laser controlled by the session device. A touch grabs and lifting the
// finger releases. With the point grip the twist sets the depth and the touch x sets the
// yaw; with the clutch grip the touch x sets the depth, the twist rolls in 90° steps and
// vertical swipes spin the target.
type Pointer struct {
	*Laser
	dev *device.Device

	twistToDepth *spatial.Curve
	touchToYaw   *spatial.Curve
	touchToDepth *spatial.Curve
	twistToRoll  *spatial.Curve
	extendRate   float64

	initialTwist  float64
	cumulativeYaw float64

	initialTouch, currentTouch, lastTouch spatial.Vec2
}

// NewPointer binds a pointer to the session device. Without a device it never grabs on
// its own; Grab and Release still work.
func NewPointer(s *interaction.Session, node *spatial.Node, opts ...interaction.ManipulatorOption) *Pointer {
	p := &Pointer{
		dev: s.Device(),
		twistToDepth: spatial.NewCurve(
			spatial.Keyframe{Time: minRelativeTwist, Value: 0},
			spatial.Keyframe{Time: 0, Value: 1},
			spatial.Keyframe{Time: maxRelativeTwist, Value: defaultMaxDepthFactor},
		),
		touchToYaw: spatial.NewCurve(
			spatial.Keyframe{Time: 0, Value: -180},
			spatial.Keyframe{Time: 0.5, Value: 1},
			spatial.Keyframe{Time: 1, Value: 180},
		),
		touchToDepth: spatial.NewCurve(
			spatial.Keyframe{Time: 0, Value: 0},
			spatial.Keyframe{Time: 0.5, Value: 1},
			spatial.Keyframe{Time: 1, Value: defaultMaxDepthFactor},
		),
		twistToRoll: spatial.NewCurve(
			spatial.Keyframe{Time: minRelativeTwist, Value: -60},
			spatial.Keyframe{Time: maxRelativeTwist, Value: 60},
		),
		extendRate: defaultDepthExtendRate,
	}
	p.Laser = &Laser{}
	p.setup(s, node, p, p, opts)

	if p.dev == nil {
		p.Log().Warn("session has no device; pointer only moves when driven directly")
		return p
	}
	for _, unsubscribe := range []func(){
		p.dev.OnTouchStart(p.handleTouchStart),
		p.dev.OnTouchHold(p.handleTouchHold),
		p.dev.OnTouchEnd(p.handleTouchEnd),
		p.dev.OnHandednessChanged(func(device.Handedness, device.Handedness) { p.resetDepthCurves() }),
	} {
		node.OnDestroy(unsubscribe)
	}
	p.resetDepthCurves()
	return p
}

// SetDepthExtendRate sets how fast the depth range grows per second while a target is
// held at the far end.
func (p *Pointer) SetDepthExtendRate(rate float64) { p.extendRate = math.Max(0, rate) }

func (p *Pointer) InitialTouch() spatial.Vec2 { return p.initialTouch }
func (p *Pointer) CurrentTouch() spatial.Vec2 { return p.currentTouch }

func (p *Pointer) grip() device.GripType {
	if p.dev == nil {
		return device.GripPoint
	}
	return p.dev.GripType()
}

func (p *Pointer) handedness() device.Handedness {
	if p.dev == nil {
		return device.RightHanded
	}
	return p.dev.Handedness()
}

// DepthFactor maps the twist (point grip) or the touch (clutch grip) to a depth multiple,
// stretching the range when the far end is reached.
func (p *Pointer) DepthFactor() float64 {
	mb := p.CurrentManipulable()
	if !p.IsInteracting() || !mb.DepthControl() {
		return 1
	}
	far := p.farKey()
	if p.grip() == device.GripPoint {
		f := p.twistToDepth.Evaluate(p.relativeTwist())
		if f >= p.twistToDepth.Key(far).Value*0.99 {
			p.extendDepth()
		}
		return f
	}
	f := p.touchToDepth.Evaluate(p.lastTouch[0])
	if f >= p.touchToDepth.Key(p.touchToDepth.Len()-1).Value*0.99 {
		p.extendDepth()
	}
	return f
}

// OffsetRotation turns the target by touch (point grip) or by snapped twist and swipes
// (clutch grip).
func (p *Pointer) OffsetRotation() spatial.Quat {
	if p.grip() == device.GripPoint {
		yaw := p.touchToYaw.Evaluate(p.currentTouch[0]) - p.touchToYaw.Evaluate(p.initialTouch[0])
		return spatial.AngleAxis(yaw, spatial.Up)
	}
	roll := p.twistToRoll.Evaluate(p.relativeTwist()) - p.twistToRoll.Evaluate(p.initialTwist)
	return spatial.AngleAxis(90*math.Round(roll/90), spatial.Forward).
		Mul(spatial.AngleAxis(p.cumulativeYaw, spatial.Up))
}

func (p *Pointer) HandleGrab() {
	p.Laser.HandleGrab()
	p.resetDepthCurves()
	p.initialTwist = 0
	p.initialTwist = p.relativeTwist()
	p.cumulativeYaw = 0
	p.remapTouchToDepth()
}

func (p *Pointer) HandleEnterManipulable() { p.Session().PlayHaptics(device.SharpTick3_60) }
func (p *Pointer) HandleExitManipulable()  { p.Session().PlayHaptics(device.SoftBump30) }

func (p *Pointer) handleTouchStart(t device.Touch) {
	p.initialTouch, p.currentTouch, p.lastTouch = t.Position, t.Position, t.Position
	p.Grab()
}

func (p *Pointer) handleTouchHold(t device.Touch) {
	p.lastTouch, p.currentTouch = p.currentTouch, t.Position
	if p.grip() != device.GripClutch {
		return
	}
	dt := p.Session().Clock().DeltaTime()
	if dt > 0 && math.Abs(p.currentTouch[0]-p.lastTouch[0])/dt > touchSeparationPerSec {
		// sideways swipes change depth, not yaw
		return
	}
	p.cumulativeYaw += p.touchToYaw.Evaluate(p.currentTouch[1]) - p.touchToYaw.Evaluate(p.lastTouch[1])
}

func (p *Pointer) handleTouchEnd(t device.Touch) {
	p.lastTouch, p.currentTouch = t.Position, t.Position
	p.Release(true)
	p.resetDepthCurves()
}

// relativeTwist is the device roll relative to the roll at grab time, in (-180, 180].
func (p *Pointer) relativeTwist() float64 {
	if p.dev == nil {
		return 0
	}
	return spatial.SignedAngle(p.dev.Twist() - p.initialTwist)
}

// farKey is the index of the twist key holding the maximum depth; left hands mirror the
// twist curve.
func (p *Pointer) farKey() int {
	if p.handedness() == device.LeftHanded {
		return 0
	}
	return p.twistToDepth.Len() - 1
}

// resetDepthCurves restores the depth ranges, widened so that small held objects can
// still be pushed a few scene units away.
func (p *Pointer) resetDepthCurves() {
	maxDepth := defaultMaxDepthFactor
	if d := p.InitialDepth(); d > 0 {
		maxDepth = math.Max(maxDepth, p.Node().LossyScale()[1]*defaultMaxDepthFactor/d)
	}
	last := p.twistToDepth.Len() - 1
	if p.handedness() == device.RightHanded {
		p.twistToDepth.SetKey(0, spatial.Keyframe{Time: minRelativeTwist, Value: 0})
		p.twistToDepth.SetKey(last, spatial.Keyframe{Time: maxRelativeTwist, Value: maxDepth})
	} else {
		p.twistToDepth.SetKey(0, spatial.Keyframe{Time: -maxRelativeTwist, Value: maxDepth})
		p.twistToDepth.SetKey(last, spatial.Keyframe{Time: -minRelativeTwist, Value: 0})
	}
	last = p.touchToDepth.Len() - 1
	k := p.touchToDepth.Key(last)
	k.Value = maxDepth
	p.touchToDepth.SetKey(last, k)
	p.Log().Debug("depth curves reset", log.Float64("max_depth_factor", maxDepth), log.Stringer("hand", p.handedness()))
}

// remapTouchToDepth centres the touch depth curve on where the touch started, pushing the
// ends out so the mapping never gets steep.
func (p *Pointer) remapTouchToDepth() {
	x := p.initialTouch[0]
	keys := p.touchToDepth.Keys()
	keys[0].Time = math.Min(0, x-0.35)
	keys[1].Time = x
	keys[2].Time = math.Max(1, x+0.35)
	p.touchToDepth = spatial.NewCurve(keys...)
}

func (p *Pointer) extendDepth() {
	step := p.extendRate * p.Session().Clock().DeltaTime()
	i := p.farKey()
	k := p.twistToDepth.Key(i)
	k.Value += step
	p.twistToDepth.SetKey(i, k)

	last := p.touchToDepth.Len() - 1
	k = p.touchToDepth.Key(last)
	k.Value += step
	p.touchToDepth.SetKey(last, k)
}
