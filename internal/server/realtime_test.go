package server

import (
	"context"
	"testing"
	"time"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
)

func TestRealtimeDispatcherPublishesToEverySubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, firstCleanup := dispatcher.Subscribe(ctx)
	defer firstCleanup()
	second, secondCleanup := dispatcher.Subscribe(ctx)
	defer secondCleanup()

	dispatcher.DonationRecorded(donors.DonationEvent{
		ReferralCode: "alice1234",
		Amount:       50,
		Outcome:      donors.OutcomeUpdated,
		Timestamp:    time.Now().UTC(),
	})

	for _, stream := range []<-chan RealtimeMessage{first, second} {
		select {
		case received := <-stream:
			if received.EventType != RealtimeEventDonationRecorded {
				t.Fatalf("expected event type %s, got %s", RealtimeEventDonationRecorded, received.EventType)
			}
			if received.Donation.ReferralCode != "alice1234" {
				t.Fatalf("unexpected referral code %s", received.Donation.ReferralCode)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatal("expected realtime message within deadline")
		}
	}
}

func TestRealtimeDispatcherDropsForFullSubscribers(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx)
	defer cleanup()

	done := make(chan struct{})
	go func() {
		for index := 0; index < defaultRealtimeBufferSize*3; index++ {
			dispatcher.DonationRecorded(donors.DonationEvent{Amount: float64(index + 1)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
	if len(stream) != defaultRealtimeBufferSize {
		t.Fatalf("expected buffered messages to be capped at %d, got %d", defaultRealtimeBufferSize, len(stream))
	}
}

func TestRealtimeDispatcherUnsubscribesOnContextCancel(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, cleanup := dispatcher.Subscribe(ctx)
	defer cleanup()
	if dispatcher.SubscriberCount() != 1 {
		t.Fatalf("expected one subscriber")
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected subscriber to be removed after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRealtimeDispatcherCloseIsIdempotent(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	dispatcher.Close()
	dispatcher.Close()

	select {
	case <-dispatcher.Done():
	default:
		t.Fatal("expected done channel to be closed")
	}
}
