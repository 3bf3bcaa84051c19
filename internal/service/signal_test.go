package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/memoryvault/vault/internal/domain"
)

func TestPumpForwardsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan *redis.Message, 1)
	events := make(chan domain.RequestEvent, 1)

	payload, _ := json.Marshal(domain.RequestEvent{
		ID:     "ev1",
		Type:   domain.EventRequestCreated,
		Wallet: "walletA",
	})
	msgs <- &redis.Message{Payload: string(payload)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		pump(ctx, msgs, events)
	}()

	select {
	case ev := <-events:
		if ev.ID != "ev1" || ev.Type != domain.EventRequestCreated {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}

	close(msgs)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop on source close")
	}
}

func TestPumpStopsWhenConsumerIsGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	msgs := make(chan *redis.Message, 1)
	events := make(chan domain.RequestEvent)

	payload, _ := json.Marshal(domain.RequestEvent{ID: "ev1"})
	msgs <- &redis.Message{Payload: string(payload)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		pump(ctx, msgs, events)
	}()

	// Nobody receives on events. Cancelling the context must still unblock
	// the pending send.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump leaked after the consumer went away")
	}
}

func TestPumpSkipsMalformedPayloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan *redis.Message, 2)
	events := make(chan domain.RequestEvent, 1)

	msgs <- &redis.Message{Payload: "not json"}
	payload, _ := json.Marshal(domain.RequestEvent{ID: "ev2"})
	msgs <- &redis.Message{Payload: string(payload)}

	go pump(ctx, msgs, events)

	select {
	case ev := <-events:
		if ev.ID != "ev2" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("valid event after a malformed one was not forwarded")
	}
}
