package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurvePassesThroughKeysAndClamps(t *testing.T) {
	c := NewCurve(Keyframe{60, 3}, Keyframe{-60, 0}, Keyframe{0, 1})
	assert.Equal(t, -60.0, c.Key(0).Time)

	assert.InDelta(t, 0, c.Evaluate(-100), 1e-12)
	assert.InDelta(t, 0, c.Evaluate(-60), 1e-12)
	assert.InDelta(t, 1, c.Evaluate(0), 1e-12)
	assert.InDelta(t, 3, c.Evaluate(60), 1e-12)
	assert.InDelta(t, 3, c.Evaluate(90), 1e-12)
	// flat tangents: the midpoint of a segment is the mean of its ends
	assert.InDelta(t, 2, c.Evaluate(30), 1e-12)
	assert.Less(t, c.Evaluate(10), 1.5)
}

func TestCurveSetKeyResorts(t *testing.T) {
	c := NewCurve(Keyframe{0, 0}, Keyframe{0.5, 1}, Keyframe{1, 3})
	c.SetKey(0, Keyframe{Time: 2, Value: 5})
	assert.Equal(t, []Keyframe{{0.5, 1}, {1, 3}, {2, 5}}, c.Keys())
	assert.InDelta(t, 1, c.Evaluate(0), 1e-12)
	assert.Zero(t, NewCurve().Evaluate(1))
}
