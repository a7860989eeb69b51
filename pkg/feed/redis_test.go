package feed

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func newTestRedisFeed() *RedisFeed {
	// No server behind this address; go-redis connects lazily, so the
	// subscription bookkeeping is exercised without one.
	return NewRedisFeedFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
}

func assertOpen(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case _, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription event channel is closed")
		}
	default:
	}
}

func TestRedisFeedSubscriptionsAreIndependent(t *testing.T) {
	f := newTestRedisFeed()
	defer f.Close()
	ctx := context.Background()

	channel := MessagesChannel("conv-1")

	subA, err := f.Subscribe(ctx, channel)
	if err != nil {
		t.Fatalf("failed to subscribe a: %v", err)
	}
	subB, err := f.Subscribe(ctx, channel)
	if err != nil {
		t.Fatalf("failed to subscribe b: %v", err)
	}

	if err := subA.Close(); err != nil {
		t.Fatalf("failed to close subscription a: %v", err)
	}

	// Closing one subscription must not touch the other's event stream.
	assertOpen(t, subB)

	f.mu.Lock()
	hub, ok := f.hubs[channel]
	if !ok {
		f.mu.Unlock()
		t.Fatal("expected channel hub to survive while a subscription remains")
	}
	remaining := len(hub.subs)
	f.mu.Unlock()
	if remaining != 1 {
		t.Fatalf("expected 1 remaining subscription, got %d", remaining)
	}

	if err := subB.Close(); err != nil {
		t.Fatalf("failed to close subscription b: %v", err)
	}

	f.mu.Lock()
	_, ok = f.hubs[channel]
	f.mu.Unlock()
	if ok {
		t.Error("expected hub removed after last subscription closed")
	}
}

func TestRedisFeedSubscriptionCloseIsIdempotent(t *testing.T) {
	f := newTestRedisFeed()
	defer f.Close()
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, MessagesChannel("conv-2"))
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("expected event channel closed after Close")
	}
}

func TestRedisFeedChannelsAreIsolated(t *testing.T) {
	f := newTestRedisFeed()
	defer f.Close()
	ctx := context.Background()

	subA, err := f.Subscribe(ctx, MessagesChannel("conv-a"))
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	subB, err := f.Subscribe(ctx, MessagesChannel("conv-b"))
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	if err := subA.Close(); err != nil {
		t.Fatalf("failed to close subscription: %v", err)
	}
	assertOpen(t, subB)

	f.mu.Lock()
	hubs := len(f.hubs)
	f.mu.Unlock()
	if hubs != 1 {
		t.Errorf("expected 1 hub after closing the other channel, got %d", hubs)
	}
}
