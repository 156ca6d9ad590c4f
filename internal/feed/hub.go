package feed

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Topic names a collection whose writes are fanned out to watchers.
type Topic string

const (
	TopicJobs     Topic = "jobs"
	TopicWorkLogs Topic = "worklogs"
)

// Op is the kind of write that produced a Change.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Change announces that a record in Topic was written.
type Change struct {
	Topic Topic
	ID    string
	Op    Op
}

// HubOption customizes Hub construction.
type HubOption func(*Hub)

// HubWithLogger injects a logger for diagnostic messages.
func HubWithLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Hub delivers change notifications to listeners registered per topic.
// Notifications coalesce: a listener that has not yet consumed a pending
// signal sees one signal for any number of changes.
type Hub struct {
	mu        sync.RWMutex
	listeners map[Topic]map[*listener]struct{}
	published map[Topic]uint64
	logger    *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		listeners: map[Topic]map[*listener]struct{}{},
		published: map[Topic]uint64{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Publish notifies every listener of c.Topic. It never blocks.
func (h *Hub) Publish(c Change) {
	topic := normalizeTopic(c.Topic)
	if topic == "" {
		return
	}
	h.mu.Lock()
	h.published[topic]++
	subs := make([]*listener, 0, len(h.listeners[topic]))
	for l := range h.listeners[topic] {
		subs = append(subs, l)
	}
	h.mu.Unlock()

	h.logger.Debug("feed change",
		zap.String("topic", string(topic)),
		zap.String("id", c.ID),
		zap.String("op", string(c.Op)),
		zap.Int("listeners", len(subs)))
	for _, l := range subs {
		l.notify()
	}
}

// Published returns how many changes have been published on topic.
func (h *Hub) Published(topic Topic) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published[normalizeTopic(topic)]
}

// Listeners returns the number of live listeners on topic.
func (h *Hub) Listeners(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[normalizeTopic(topic)])
}

// listen registers a listener on topic. The returned func unregisters it.
func (h *Hub) listen(topic Topic) (*listener, func()) {
	topic = normalizeTopic(topic)
	l := &listener{signal: make(chan struct{}, 1)}
	h.mu.Lock()
	if h.listeners[topic] == nil {
		h.listeners[topic] = map[*listener]struct{}{}
	}
	h.listeners[topic][l] = struct{}{}
	h.mu.Unlock()

	return l, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs := h.listeners[topic]; subs != nil {
			delete(subs, l)
			if len(subs) == 0 {
				delete(h.listeners, topic)
			}
		}
	}
}

func normalizeTopic(t Topic) Topic {
	return Topic(strings.TrimSpace(strings.ToLower(string(t))))
}

type listener struct {
	signal chan struct{}
}

func (l *listener) notify() {
	select {
	case l.signal <- struct{}{}:
	default:
		// A signal is already pending; the next reload will observe this change too.
	}
}
