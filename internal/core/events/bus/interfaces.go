package bus

import "time"

// EventBus is an in-process pub/sub bus.
//
// Key characteristics:
//   - Type-based fan-out: handlers subscribe by Event.Type() string, or by Wildcard for every type.
//   - Topics: handlers subscribe within a topic for isolation (one topic per scene).
//   - Synchronous, ordered delivery: PublishToTopic calls handlers in the caller goroutine, in
//     subscription order, type-specific handlers before wildcard handlers.
//   - Error aggregation: multiple handler errors are joined and returned from PublishToTopic.
//   - Optional observability: metrics are produced only when observers are registered.
//
// All methods are safe for concurrent use. Handlers may subscribe or unsubscribe while
// being called; the change applies from the next publish.
type EventBus interface {
	// Unsubscribe cancels the given Subscription. It is safe to call with nil.
	Unsubscribe(Subscription) error

	// CreateTopic declares a logical topic. A topic keeps the first non-empty description it is given.
	CreateTopic(name string, config TopicConfig) error
	// SubscribeTopic registers a handler for eventType within a topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// PublishToTopic publishes to a specific topic.
	PublishToTopic(topic string, event Event) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	// GetMetrics returns a snapshot of accumulated metrics, collected only while observed.
	GetMetrics() EventBusMetrics
	GetTopics() []TopicInfo
}

// Wildcard subscribes a handler to every event type of a topic.
const Wildcard = "*"

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

// EventHandler is invoked per delivered event. Returned errors are aggregated.
type EventHandler func(event Event) error

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler from the bus. Multiple calls are safe.
	Cancel() error
}

// TopicConfig describes topic-level settings.
type TopicConfig struct {
	// Description is free-form, surfaced through GetTopics.
	Description string
}

// EventBusObserver is notified about deliveries and errors.
type EventBusObserver interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, duration time.Duration)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}

type TopicInfo struct {
	Name        string
	Description string
	EventTypes  int
	Subs        int
}
