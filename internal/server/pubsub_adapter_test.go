package server

import (
	"testing"
	"time"

	"github.com/mcpenterprise/server/internal/pubsub"
)

func TestBusAdapterForwardsPublishedEvents(t *testing.T) {
	bus := pubsub.New()
	adapter := NewBusAdapter(bus)

	events, ok := adapter.Subscribe(pubsub.ChannelSystemStats, "sub-1")
	if !ok {
		t.Fatal("expected subscribe to succeed on a valid channel")
	}

	bus.Publish(pubsub.ChannelSystemStats, map[string]any{"cpu": 42.0})

	select {
	case evt := <-events:
		if evt.Channel != pubsub.ChannelSystemStats {
			t.Fatalf("expected channel %q, got %q", pubsub.ChannelSystemStats, evt.Channel)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a forwarded event")
	}

	adapter.UnsubscribeAll("sub-1")
}

func TestBusAdapterRejectsUnknownChannel(t *testing.T) {
	bus := pubsub.New()
	adapter := NewBusAdapter(bus)

	if _, ok := adapter.Subscribe("not_a_real_channel", "sub-1"); ok {
		t.Fatal("expected subscribe to an unknown channel to fail")
	}
}

func TestBusAdapterUnsubscribeStopsDelivery(t *testing.T) {
	bus := pubsub.New()
	adapter := NewBusAdapter(bus)

	events, _ := adapter.Subscribe(pubsub.ChannelMemoryUpdates, "sub-2")
	adapter.Unsubscribe(pubsub.ChannelMemoryUpdates, "sub-2")

	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected channel to be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("expected adapter channel to close promptly")
	}
}
