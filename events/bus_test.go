package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenberry/abi"
)

func startedBus(t *testing.T) *Bus {
	t.Helper()
	b := NewBus()
	require.NoError(t, b.Start())
	t.Cleanup(func() { b.Stop() })
	return b
}

func receive(t *testing.T, ch <-chan abi.Event) abi.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return abi.Event{}
	}
}

func TestBusPublishSubscribe(t *testing.T) {
	b := startedBus(t)

	ch, err := b.Subscribe(context.Background(), "test", abi.QueryEventType{EventType: abi.EventTransfer})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), abi.NewEvent(abi.EventTransfer)))
	require.NoError(t, b.Publish(context.Background(), abi.NewEvent(abi.EventPaused)))

	e := receive(t, ch)
	require.Equal(t, abi.EventTransfer, e.Type)

	select {
	case e := <-ch:
		t.Fatalf("unexpected event %q", e.Type)
	default:
	}
}

func TestBusRequiresRunning(t *testing.T) {
	b := NewBus()

	_, err := b.Subscribe(context.Background(), "test", abi.QueryAll{})
	require.ErrorIs(t, err, ErrBusNotRunning)
	require.ErrorIs(t, b.Publish(context.Background(), abi.NewEvent(abi.EventTransfer)), ErrBusNotRunning)
}

func TestBusDuplicateSubscription(t *testing.T) {
	b := startedBus(t)

	_, err := b.Subscribe(context.Background(), "test", abi.QueryAll{})
	require.NoError(t, err)

	_, err = b.Subscribe(context.Background(), "test", abi.QueryAll{})
	require.ErrorIs(t, err, ErrSubscriberExists)

	// A different query under the same subscriber is a new subscription.
	_, err = b.Subscribe(context.Background(), "test", abi.QueryEventType{EventType: abi.EventTransfer})
	require.NoError(t, err)
	require.Equal(t, 2, b.NumSubscribers())
}

func TestBusMaxSubscribers(t *testing.T) {
	b := NewBusWithConfig(BusConfig{MaxSubscribers: 1})
	require.NoError(t, b.Start())
	defer b.Stop()

	_, err := b.Subscribe(context.Background(), "a", abi.QueryAll{})
	require.NoError(t, err)

	_, err = b.Subscribe(context.Background(), "b", abi.QueryAll{})
	require.ErrorIs(t, err, ErrTooManySubscribers)
}

func TestBusUnsubscribe(t *testing.T) {
	b := startedBus(t)
	query := abi.QueryAll{}

	ch, err := b.Subscribe(context.Background(), "test", query)
	require.NoError(t, err)

	require.NoError(t, b.Unsubscribe(context.Background(), "test", query))
	require.ErrorIs(t, b.Unsubscribe(context.Background(), "test", query), ErrSubscriberNotFound)

	_, open := <-ch
	require.False(t, open, "channel must close on unsubscribe")
	require.Zero(t, b.NumSubscribers())
}

func TestBusUnsubscribeAll(t *testing.T) {
	b := startedBus(t)

	_, err := b.Subscribe(context.Background(), "a", abi.QueryAll{})
	require.NoError(t, err)
	_, err = b.Subscribe(context.Background(), "a", abi.QueryEventType{EventType: abi.EventTransfer})
	require.NoError(t, err)
	_, err = b.Subscribe(context.Background(), "b", abi.QueryAll{})
	require.NoError(t, err)

	require.NoError(t, b.UnsubscribeAll(context.Background(), "a"))
	require.Equal(t, 1, b.NumSubscribers())
}

func TestBusAttributeQuery(t *testing.T) {
	b := startedBus(t)

	ch, err := b.Subscribe(context.Background(), "test", abi.QueryAttribute{
		Key:   abi.AttributeKeySender,
		Value: "alice",
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(),
		abi.NewEvent(abi.EventTransfer).AddStringAttribute(abi.AttributeKeySender, "bob")))
	require.NoError(t, b.Publish(context.Background(),
		abi.NewEvent(abi.EventTransfer).AddStringAttribute(abi.AttributeKeySender, "alice")))

	e := receive(t, ch)
	require.Equal(t, "alice", string(e.GetAttribute(abi.AttributeKeySender)))
}

func TestBusStopClosesChannels(t *testing.T) {
	b := NewBus()
	require.NoError(t, b.Start())

	ch, err := b.Subscribe(context.Background(), "test", abi.QueryAll{})
	require.NoError(t, err)

	require.NoError(t, b.Stop())
	_, open := <-ch
	require.False(t, open)

	// Stop is idempotent.
	require.NoError(t, b.Stop())
}

func TestBusContextCancellation(t *testing.T) {
	b := startedBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "test", abi.QueryAll{})
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancellation")
	}
	require.Eventually(t, func() bool { return b.NumSubscribers() == 0 }, time.Second, 10*time.Millisecond)
}
