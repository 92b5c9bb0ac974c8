package api

import (
	"testing"
	"time"
)

func TestBrokerPubSub(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("run-1")
	defer b.Unsubscribe("run-1", ch)

	b.Publish("run-1", RunEvent{Type: "run.started"})
	select {
	case evt := <-ch:
		if evt.Type != "run.started" {
			t.Fatalf("got %q", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestBrokerKeyIsolation(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("run-1")
	defer b.Unsubscribe("run-1", ch)

	b.Publish("run-2", RunEvent{Type: "run.completed"})
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %q on other key", evt.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRedisBrokerUnsubscribeClosesChannel(t *testing.T) {
	// port 0 is never listening; the broker works offline for this path
	b, err := NewRedisBroker("redis://127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ch := b.Subscribe("run-9")
	b.Unsubscribe("run-9", ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("got event from a closed subscription")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber channel not closed after unsubscribe")
	}
	// publishing after unsubscribe must not panic
	b.Publish("run-9", RunEvent{Type: "run.completed"})
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("run-1")
	defer b.Unsubscribe("run-1", ch)

	done := make(chan struct{})
	go func() {
		// buffer is 8; publish well past it
		for i := 0; i < 50; i++ {
			b.Publish("run-1", RunEvent{Type: "method.completed"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}
