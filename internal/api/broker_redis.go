package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// EventBroker distributes run events to stream subscribers.
type EventBroker interface {
	Subscribe(key string) chan RunEvent
	Unsubscribe(key string, ch chan RunEvent)
	Publish(key string, evt RunEvent)
}

// RedisBroker implements EventBroker over Redis Pub/Sub so streams work
// across multiple API replicas.
type RedisBroker struct {
	rdb  *redis.Client
	mu   sync.Mutex
	subs map[chan RunEvent]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBroker{
		rdb:  redis.NewClient(opt),
		subs: make(map[chan RunEvent]*redis.PubSub),
	}, nil
}

func (b *RedisBroker) Subscribe(key string) chan RunEvent {
	ch := make(chan RunEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(key))
	// initial consume to ensure subscription
	_, _ = ps.Receive(ctx)

	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()

	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch
}

// Unsubscribe closes the underlying PubSub; the reader goroutine drains
// its channel, exits, and closes ch. Subscribers must not close ch.
func (b *RedisBroker) Unsubscribe(key string, ch chan RunEvent) {
	b.mu.Lock()
	ps := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(key string, evt RunEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	_ = b.rdb.Publish(ctx, b.chanName(key), data).Err()
}

func (b *RedisBroker) chanName(key string) string { return "run:" + key }
