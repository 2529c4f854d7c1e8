package memorybus

import (
	"testing"
	"time"
)

func TestBus_SubscribeFiltersTopics(t *testing.T) {
	b := New()
	all, cancelAll := b.Subscribe()
	defer cancelAll()
	feed, cancelFeed := b.Subscribe("feed.updated")
	defer cancelFeed()

	b.Publish("run.completed", []byte(`{}`))
	b.Publish("feed.updated", []byte(`{"added":1}`))

	got := <-all
	if got.Topic != "run.completed" {
		t.Fatalf("all: expected run.completed first, got %q", got.Topic)
	}
	if got = <-all; got.Topic != "feed.updated" {
		t.Fatalf("all: expected feed.updated, got %q", got.Topic)
	}

	select {
	case evt := <-feed:
		if evt.Topic != "feed.updated" || string(evt.Payload) != `{"added":1}` {
			t.Fatalf("feed: unexpected event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("feed: expected an event")
	}
	select {
	case evt := <-feed:
		t.Fatalf("feed: unexpected extra event %+v", evt)
	default:
	}
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	b.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	cancel()
	b.Publish("run.completed", nil)

	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("expected subscription after Close to be closed")
	}
}
