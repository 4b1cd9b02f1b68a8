package spatial

import (
	"slices"
)

// Keyframe is a point of a Curve.
type Keyframe struct {
	Time, Value float64
}

// Curve is a piecewise cubic Hermite curve with flat tangents at every key: it passes
// through each key, eases in and out of it, and is constant beyond the first and last keys.
type Curve struct {
	keys []Keyframe
}

// NewCurve builds a curve from keys in any order.
func NewCurve(keys ...Keyframe) *Curve {
	c := &Curve{keys: slices.Clone(keys)}
	c.sort()
	return c
}

func (c *Curve) sort() {
	slices.SortStableFunc(c.keys, func(a, b Keyframe) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
}

func (c *Curve) Len() int { return len(c.keys) }

// Key returns the i-th key in time order.
func (c *Curve) Key(i int) Keyframe { return c.keys[i] }

// SetKey replaces the i-th key; keys are re-sorted by time afterwards.
func (c *Curve) SetKey(i int, k Keyframe) {
	c.keys[i] = k
	c.sort()
}

// Keys returns a copy of the keys in time order.
func (c *Curve) Keys() []Keyframe { return slices.Clone(c.keys) }

// Evaluate samples the curve at t.
func (c *Curve) Evaluate(t float64) float64 {
	n := len(c.keys)
	switch {
	case n == 0:
		return 0
	case t <= c.keys[0].Time:
		return c.keys[0].Value
	case t >= c.keys[n-1].Time:
		return c.keys[n-1].Value
	}
	i := 1
	for c.keys[i].Time < t {
		i++
	}
	a, b := c.keys[i-1], c.keys[i]
	span := b.Time - a.Time
	if span <= 0 {
		return b.Value
	}
	u := (t - a.Time) / span
	h := u * u * (3 - 2*u)
	return a.Value + (b.Value-a.Value)*h
}
