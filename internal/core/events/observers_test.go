package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserversRunInOrder(t *testing.T) {
	var o Observers[func(int)]
	var got []int
	o.Add(func(v int) { got = append(got, v) })
	o.Add(func(v int) { got = append(got, v*10) })
	o.Each(func(fn func(int)) { fn(2) })
	assert.Equal(t, []int{2, 20}, got)
}

func TestObserversRemoveDuringNotify(t *testing.T) {
	var o Observers[func()]
	calls := 0
	var removeSecond func()
	o.Add(func() { calls++; removeSecond() })
	removeSecond = o.Add(func() { calls += 100 })
	o.Add(func() { o.Add(func() { calls += 1000 }) })

	o.Each(func(fn func()) { fn() })
	assert.Equal(t, 1, calls, "removed observer must not run, added one waits")
	assert.Equal(t, 3, o.Len())

	removeSecond()
	o.Clear()
	assert.Zero(t, o.Len())
}
