package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outflowhq/outflow/pkg/events"
)

func TestGoChannelEventBus_PublishSubscribe(t *testing.T) {
	bus := NewGoChannelEventBus(slog.Default())

	t.Cleanup(func() {
		_ = bus.Close()
	})

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.FlowSavedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.FlowSaved{
		BaseEvent: events.NewBase("c1", events.FlowSavedEvent),
		NodeCount: 3,
		EdgeCount: 2,
	}
	require.NoError(t, bus.Publish(ctx, "c1", sent))

	select {
	case event := <-received:
		saved, ok := event.(*events.FlowSaved)
		require.True(t, ok)
		assert.Equal(t, "c1", saved.CampaignID)
		assert.Equal(t, 3, saved.NodeCount)
		assert.Equal(t, 2, saved.EdgeCount)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestGoChannelEventBus_UnhandledEventIsAcked(t *testing.T) {
	bus := NewGoChannelEventBus(slog.Default())

	t.Cleanup(func() {
		_ = bus.Close()
	})

	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered: the event is dropped without blocking the
	// subscription.
	event := events.NodeMoved{
		BaseEvent: events.NewBase("c1", events.NodeMovedEvent),
		NodeID:    "n1",
		X:         1,
		Y:         2,
	}
	require.NoError(t, bus.Publish(ctx, "c1", event))
}
