package bus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_, _ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_, _ string, handlers int, err error, _ time.Duration) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got Event
	_, err := b.SubscribeTopic("scene", "test.event", func(e Event) error {
		got = e
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, b.PublishToTopic("scene", NewEvent("test.event", "tester", 123, nil)))
	require.NotNil(t, got)
	assert.Equal(t, 123, got.Data())
	assert.Equal(t, "tester", got.Source())
}

func TestDeliveryOrderFollowsSubscriptionOrder(t *testing.T) {
	b := New()
	var order []string
	_, _ = b.SubscribeTopic("scene", Wildcard, func(Event) error { order = append(order, "wildcard"); return nil })
	_, _ = b.SubscribeTopic("scene", "ev", func(Event) error { order = append(order, "first"); return nil })
	_, _ = b.SubscribeTopic("scene", "ev", func(Event) error { order = append(order, "second"); return nil })

	require.NoError(t, b.PublishToTopic("scene", NewEvent("ev", "src", nil, nil)))
	assert.Equal(t, []string{"first", "second", "wildcard"}, order)
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	e1, e2 := errors.New("one"), errors.New("two")
	_, _ = b.SubscribeTopic("scene", "x", func(Event) error { return e1 })
	_, _ = b.SubscribeTopic("scene", "x", func(Event) error { return e2 })

	err := b.PublishToTopic("scene", NewEvent("x", "src", nil, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.SubscribeTopic("scene", "x", func(Event) error { count++; return nil })
	require.NoError(t, err)

	_ = b.PublishToTopic("scene", NewEvent("x", "src", nil, nil))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	_ = b.PublishToTopic("scene", NewEvent("x", "src", nil, nil))

	assert.Equal(t, 1, count)
	assert.False(t, sub.IsActive())
}

func TestNilHandlerRejected(t *testing.T) {
	_, err := New().SubscribeTopic("scene", "x", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
}

func TestTopicsIsolation(t *testing.T) {
	b := New()
	require.NoError(t, b.CreateTopic("t1", TopicConfig{Description: "scene one"}))
	require.NoError(t, b.CreateTopic("t2", TopicConfig{}))
	count1, count2 := 0, 0
	_, _ = b.SubscribeTopic("t1", "ev", func(Event) error { count1++; return nil })
	_, _ = b.SubscribeTopic("t2", "ev", func(Event) error { count2++; return nil })
	_ = b.PublishToTopic("t1", NewEvent("ev", "src", nil, nil))
	assert.Equal(t, 1, count1)
	assert.Equal(t, 0, count2)

	topics := b.GetTopics()
	require.Len(t, topics, 2)
	assert.Equal(t, "scene one", topics[0].Description)
	assert.Equal(t, 1, topics[0].Subs)
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	_, _ = b.SubscribeTopic("scene", "e", func(Event) error { return nil })
	_ = b.PublishToTopic("scene", NewEvent("e", "s", nil, nil))
	assert.Zero(t, b.GetMetrics().Published)

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.PublishToTopic("scene", NewEvent("e", "s", nil, nil))
	m := b.GetMetrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, 1, obs.publishCount)
	assert.Equal(t, 1, obs.deliveredCount)

	b.RemoveObserver(obs)
	_ = b.PublishToTopic("scene", NewEvent("e", "s", nil, nil))
	assert.Equal(t, 1, obs.publishCount)
}

func TestCreateTopicDescribesImplicitTopic(t *testing.T) {
	b := New()
	_, err := b.SubscribeTopic("left", Wildcard, func(Event) error { return nil })
	require.NoError(t, err)
	require.NoError(t, b.CreateTopic("left", TopicConfig{Description: "scenario left"}))
	require.NoError(t, b.CreateTopic("left", TopicConfig{Description: "ignored"}))

	topics := b.GetTopics()
	require.Len(t, topics, 1)
	assert.Equal(t, "scenario left", topics[0].Description)
}
