package device

import (
	"github.com/zeusync/grab/internal/core/events"
)

// ScaleNotifier reports the scale the AR layer renders the scene at.
type ScaleNotifier struct {
	scale     float64
	observers events.Observers[func(current, previous float64)]
}

func NewScaleNotifier() *ScaleNotifier { return &ScaleNotifier{scale: 1} }

func (s *ScaleNotifier) Scale() float64 { return s.scale }

// SetScale changes the scale; non-positive and unchanged values are ignored.
func (s *ScaleNotifier) SetScale(scale float64) {
	if scale <= 0 || scale == s.scale {
		return
	}
	prev := s.scale
	s.scale = scale
	s.observers.Each(func(fn func(float64, float64)) { fn(scale, prev) })
}

func (s *ScaleNotifier) OnScaleChanged(fn func(current, previous float64)) func() {
	return s.observers.Add(fn)
}
