package api

import (
	"sync"
)

// RunEvent is one progress or completion event for an optimization run.
type RunEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Broker fans run events out to in-process subscribers, keyed by channel
// name (run id or depot).
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan RunEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(key string) chan RunEvent {
	ch := make(chan RunEvent, 8)
	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = map[chan RunEvent]struct{}{}
	}
	b.subs[key][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(key string, ch chan RunEvent) {
	b.mu.Lock()
	if m := b.subs[key]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, key)
		}
	}
	b.mu.Unlock()
	close(ch)
}

// Publish never blocks; slow subscribers drop events.
func (b *Broker) Publish(key string, evt RunEvent) {
	b.mu.Lock()
	for ch := range b.subs[key] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
