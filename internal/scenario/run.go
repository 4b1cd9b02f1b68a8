package scenario

import (
	"context"
	"fmt"

	"github.com/zeusync/grab/internal/config"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/interaction/manipulators"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
)

const timeEpsilon = 1e-9

// Run replays the steps frame by frame until the scenario duration elapsed, then checks
// the expectations. A scene runs once.
func (s *Scene) Run(ctx context.Context) (*Report, error) {
	if s.ran {
		return nil, ErrAlreadyRan
	}
	s.ran = true
	defer s.Close()

	steps := s.spec.Steps
	next := 0
	for s.sched.Now()+s.frameDt <= s.spec.Duration+timeEpsilon {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.spec.Name, err)
		}
		for next < len(steps) && steps[next].At <= s.sched.Now()+timeEpsilon {
			st := steps[next]
			if err := s.apply(st); err != nil {
				return nil, fmt.Errorf("scenario %s: step %d (%s at %.3fs): %w", s.spec.Name, next, st.Action, st.At, err)
			}
			next++
		}
		s.sched.Tick(s.frameDt)
	}
	if next < len(steps) {
		s.log.Warn("steps after the end of the scenario were not applied", log.Int("skipped", len(steps)-next))
	}
	return s.report(), nil
}

func (s *Scene) apply(st config.Step) error {
	s.log.Debug("step", log.String("action", st.Action), log.Float64("at", st.At))
	switch st.Action {
	case config.ActionGrab:
		s.actors[st.Actor].Grab()
	case config.ActionRelease:
		s.actors[st.Actor].Release(true)
	case config.ActionGrabObject:
		n, err := s.node(st.Object)
		if err != nil {
			return err
		}
		mbs := spatial.ComponentsOf[*interaction.Manipulable](n)
		if len(mbs) == 0 {
			return fmt.Errorf("%w: %s has no manipulable", ErrUnknownNode, st.Object)
		}
		s.actors[st.Actor].GrabManipulable(mbs[0])
	case config.ActionMove:
		n, err := s.subject(st)
		if err != nil {
			return err
		}
		n.SetPosition(st.Position.Vec())
	case config.ActionRotate:
		n, err := s.subject(st)
		if err != nil {
			return err
		}
		n.SetRotation(spatial.EulerVec(st.Rotation.Vec()))
	case config.ActionLookAt:
		n, err := s.node(st.Actor)
		if err != nil {
			return err
		}
		var goal spatial.Vec3
		if st.Object != "" {
			target, err := s.node(st.Object)
			if err != nil {
				return err
			}
			goal = target.Position()
		} else {
			goal = st.Position.Vec()
		}
		n.SetRotation(spatial.LookRotation(goal.Sub(n.Position()), spatial.Up))
	case config.ActionTouchStart, config.ActionTouch, config.ActionTouchEnd:
		return s.touch(st)
	case config.ActionTwist:
		if _, err := s.pointer(st.Actor); err != nil {
			return err
		}
		s.device.SetTwist(st.Value)
	case config.ActionConnect:
		if s.device == nil {
			return ErrNoDevice
		}
		s.device.Connect(st.Actor)
	case config.ActionInteractable:
		n, err := s.node(st.Object)
		if err != nil {
			return err
		}
		for _, mb := range spatial.ComponentsInChildren[*interaction.Manipulable](n) {
			mb.SetInteractable(*st.Enabled)
		}
	case config.ActionDestroy:
		n, err := s.subject(st)
		if err != nil {
			return err
		}
		n.Destroy()
	}
	return nil
}

// node resolves a placed node; templates and spawned copies are not addressable.
func (s *Scene) node(name string) (*spatial.Node, error) {
	n := s.nodes[name]
	if n == nil {
		return nil, fmt.Errorf("%w: %q is not placed in the scene", ErrUnknownNode, name)
	}
	return n, nil
}

// subject is the node a step names, actor or object.
func (s *Scene) subject(st config.Step) (*spatial.Node, error) {
	if st.Actor != "" {
		return s.node(st.Actor)
	}
	return s.node(st.Object)
}

func (s *Scene) pointer(name string) (*manipulators.Pointer, error) {
	p, ok := s.actors[name].concrete.(*manipulators.Pointer)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a pointer", ErrUnsupportedStep, name)
	}
	if s.device == nil {
		return nil, ErrNoDevice
	}
	return p, nil
}

// touch drives the device for pointers and the touch requests of virtual pointers, where
// a touch step sets the depth factor.
func (s *Scene) touch(st config.Step) error {
	if v, ok := s.actors[st.Actor].concrete.(*manipulators.VirtualPointer); ok {
		switch st.Action {
		case config.ActionTouchStart:
			v.StartTouch()
		case config.ActionTouch:
			v.SetDepthFactor(st.Value)
		default:
			v.EndTouch()
		}
		return nil
	}
	if _, err := s.pointer(st.Actor); err != nil {
		return err
	}
	pos := spatial.Vec2{st.Touch[0], st.Touch[1]}
	switch st.Action {
	case config.ActionTouchStart:
		s.device.StartTouch(pos, spatial.Vec2{})
	case config.ActionTouch:
		s.device.MoveTouch(pos, spatial.Vec2{})
	default:
		s.device.EndTouch(pos, spatial.Vec2{})
	}
	return nil
}
