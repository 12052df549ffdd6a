package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/metric"
	"github.com/c360/semstreams-robotics/pkg/buffer"
)

// DefaultSubscriptionCapacity is the queue length of a subscription
const DefaultSubscriptionCapacity = 64

// Message is one value delivered to a subscription. Number increases by one
// per value; a jump means the subscriber fell behind and values were dropped.
type Message struct {
	Subscription string    `json:"subscription"`
	Number       uint64    `json:"number"`
	Cycler       string    `json:"cycler"`
	Path         string    `json:"path"`
	Cycle        uint64    `json:"cycle"`
	Time         time.Time `json:"time"`
	Value        any       `json:"value"`
}

// Subscription receives the values of one path written by one cycler
type Subscription struct {
	ID     string
	Cycler string
	Path   string

	queue buffer.Buffer[Message]
	next  uint64
	done  chan struct{}
	once  sync.Once
}

// Notify is signalled when messages are queued
func (s *Subscription) Notify() <-chan struct{} {
	return s.queue.Notify()
}

// Done is closed when the subscription is removed from its hub
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Drain removes up to max queued messages
func (s *Subscription) Drain(max int) []Message {
	return s.queue.ReadBatch(max)
}

// Dropped returns how many messages the subscriber missed
func (s *Subscription) Dropped() int64 {
	return s.queue.Stats().Drops()
}

func (s *Subscription) close() {
	s.once.Do(func() {
		_ = s.queue.Close()
		close(s.done)
	})
}

// Hub routes frames to subscriptions keyed by cycler and path.
// Emit never blocks: a full subscription queue drops its oldest message.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]*Subscription
	byKey   map[key]map[string]*Subscription
	metrics *metric.Metrics
}

type key struct {
	cycler string
	path   string
}

var (
	_ Sink          = (*Hub)(nil)
	_ Subscriptions = (*Hub)(nil)
)

// NewHub creates an empty hub. metrics can be nil.
func NewHub(metrics *metric.Metrics) *Hub {
	return &Hub{
		subs:    make(map[string]*Subscription),
		byKey:   make(map[key]map[string]*Subscription),
		metrics: metrics,
	}
}

// Subscribe starts delivering values of path written by cycler. A capacity
// below one uses DefaultSubscriptionCapacity.
func (h *Hub) Subscribe(cycler, path string, capacity int) (*Subscription, error) {
	if cycler == "" || path == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: subscription needs cycler and path", errors.ErrInvalidConfig),
			"Hub", "Subscribe", "request validation")
	}
	if capacity < 1 {
		capacity = DefaultSubscriptionCapacity
	}

	sub := &Subscription{
		ID:     uuid.NewString(),
		Cycler: cycler,
		Path:   path,
		done:   make(chan struct{}),
	}
	sub.queue = buffer.NewCircularBuffer[Message](capacity,
		buffer.WithOverflowPolicy[Message](buffer.DropOldest),
		buffer.WithDropCallback[Message](func(Message) {
			if h.metrics != nil {
				h.metrics.RecordTelemetryDropped("hub", 1)
			}
		}))

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub.ID] = sub
	k := key{cycler, path}
	if h.byKey[k] == nil {
		h.byKey[k] = make(map[string]*Subscription)
	}
	h.byKey[k][sub.ID] = sub
	return sub, nil
}

// Unsubscribe removes a subscription; unknown ids are ignored
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		k := key{sub.Cycler, sub.Path}
		delete(h.byKey[k], id)
		if len(h.byKey[k]) == 0 {
			delete(h.byKey, k)
		}
	}
	h.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Len returns the number of subscriptions
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Subscribed reports whether anyone listens to path of cycler
func (h *Hub) Subscribed(cycler, path string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byKey[key{cycler, path}]) > 0
}

// Emit queues the frame's values for every matching subscription. Main
// outputs take precedence over additional outputs, which take precedence
// over persistent state of the same path.
func (h *Hub) Emit(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for k, subs := range h.byKey {
		if k.cycler != frame.Cycler {
			continue
		}
		value, ok := lookup(frame, k.path)
		if !ok {
			continue
		}
		for _, sub := range subs {
			sub.next++
			_ = sub.queue.Write(Message{
				Subscription: sub.ID,
				Number:       sub.next,
				Cycler:       frame.Cycler,
				Path:         k.path,
				Cycle:        frame.Cycle,
				Time:         frame.Time,
				Value:        value,
			})
		}
	}
}

// Close removes every subscription
func (h *Hub) Close() error {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*Subscription)
	h.byKey = make(map[key]map[string]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return nil
}

func lookup(frame Frame, path string) (any, bool) {
	if v, ok := frame.Outputs[path]; ok {
		return v, true
	}
	if v, ok := frame.Additional[path]; ok {
		return v, true
	}
	v, ok := frame.Persistent[path]
	return v, ok
}
