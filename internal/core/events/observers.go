// Package events holds per-entity observer lists. Scene-wide fan-out goes through the bus
// subpackage.
package events

// Observers is an ordered list of callbacks of type F. Callbacks run in registration order
// and may add or remove observers while being notified; such changes apply to the next
// notification.
type Observers[F any] struct {
	slots []*slot[F]
}

type slot[F any] struct {
	fn      F
	removed bool
}

// Add registers fn and returns a function removing it again.
func (o *Observers[F]) Add(fn F) (remove func()) {
	s := &slot[F]{fn: fn}
	o.slots = append(o.slots, s)
	return func() {
		if s.removed {
			return
		}
		s.removed = true
		for i, x := range o.slots {
			if x == s {
				o.slots = append(o.slots[:i:i], o.slots[i+1:]...)
				return
			}
		}
	}
}

// Each calls visit for every observer registered when Each started and not removed since.
func (o *Observers[F]) Each(visit func(F)) {
	if len(o.slots) == 0 {
		return
	}
	snapshot := append([]*slot[F](nil), o.slots...)
	for _, s := range snapshot {
		if !s.removed {
			visit(s.fn)
		}
	}
}

func (o *Observers[F]) Len() int { return len(o.slots) }

// Clear removes every observer.
func (o *Observers[F]) Clear() {
	for _, s := range o.slots {
		s.removed = true
	}
	o.slots = nil
}
