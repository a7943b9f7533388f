package stream

import (
	"testing"

	"tradegate/internal/models"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub1 := hub.Subscribe("sub1")
	sub2 := hub.Subscribe("sub2")

	hub.Publish(Event{
		Kind:   EventSessionStarted,
		UserID: "u1",
		Session: &models.CooldownSession{
			ID:     "s1",
			UserID: "u1",
		},
	})

	for name, ch := range map[string]<-chan Event{"sub1": sub1, "sub2": sub2} {
		select {
		case event := <-ch:
			if event.Kind != EventSessionStarted || event.UserID != "u1" {
				t.Errorf("%s received wrong event: %+v", name, event)
			}
			if event.Timestamp.IsZero() {
				t.Errorf("%s event timestamp not set", name)
			}
		default:
			t.Errorf("%s received no event", name)
		}
	}
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	hub := NewHubWithConfig(HubConfig{
		SubscriberBufferSize:      2,
		SlowConsumerDropThreshold: 3,
	})
	defer hub.Close()

	hub.Subscribe("slow")

	// Buffer of 2, so publishes beyond that are dropped without blocking.
	for i := 0; i < 6; i++ {
		hub.Publish(Event{Kind: EventScoreAdjusted, UserID: "u1"})
	}

	published, dropped := hub.Stats()
	if published != 6 {
		t.Errorf("Expected 6 published, got %d", published)
	}
	if dropped != 4 {
		t.Errorf("Expected 4 dropped, got %d", dropped)
	}

	slow := hub.SlowSubscribers()
	if len(slow) != 1 || slow[0] != "slow" {
		t.Errorf("Expected slow subscriber flagged, got %v", slow)
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch := hub.Subscribe("tmp")
	hub.Unsubscribe("tmp")

	if _, ok := <-ch; ok {
		t.Error("Expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	hub.Publish(Event{Kind: EventApprovalIssued, UserID: "u1"})
}

func TestHubCloseStopsPublishing(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("sub")

	hub.Close()

	if _, ok := <-ch; ok {
		t.Error("Expected closed subscriber channel after hub close")
	}

	hub.Publish(Event{Kind: EventApprovalIssued})
	if published, _ := hub.Stats(); published != 0 {
		t.Errorf("Publish after close must be a no-op, got %d", published)
	}

	// Closing twice is safe.
	hub.Close()
}
