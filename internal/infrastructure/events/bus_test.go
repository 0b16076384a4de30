package events

import (
	"testing"
	"time"

	"github.com/gridmind/gridmind-go/internal/shared"
)

func TestPublishDelivers(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := bus.Subscribe(shared.EventModelUpdated)
	bus.PublishModelUpdated(3, 0.92, 0.15)

	select {
	case event := <-ch:
		if event.Type != shared.EventModelUpdated {
			t.Errorf("unexpected type %s", event.Type)
		}
		if event.ID == "" {
			t.Error("expected generated event ID")
		}
		if event.Timestamp == 0 {
			t.Error("expected timestamp filled")
		}
		if event.Severity != shared.SeverityInfo {
			t.Errorf("expected info severity, got %s", event.Severity)
		}
		if event.Payload["version"] != int64(3) {
			t.Errorf("unexpected payload %v", event.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := bus.SubscribeAll()
	bus.PublishLearningProgress(25, 0.4, 100)
	bus.PublishStabilityReport(true, 0.95, "stable", nil, nil)

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}

func TestSlowSubscriberDropsWithoutBlocking(t *testing.T) {
	bus := New(WithBufferSize(1), WithSendTimeout(5*time.Millisecond))
	defer bus.Close()

	// Never read from this channel.
	bus.Subscribe(shared.EventLearningProgress)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.PublishLearningProgress(i, 0.5, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	if bus.Dropped() == 0 {
		t.Error("expected dropped events for slow subscriber")
	}
}

func TestHandlerInvoked(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan shared.Event, 1)
	bus.On(shared.EventModelUpdateRejected, func(event shared.Event) {
		received <- event
	})

	bus.PublishModelUpdateRejected("unstable", 0.4, []string{"catastrophic_forgetting"})

	select {
	case event := <-received:
		if event.Severity != shared.SeverityWarning {
			t.Errorf("expected warning severity, got %s", event.Severity)
		}
		if event.Payload["reason"] != "unstable" {
			t.Errorf("unexpected payload %v", event.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	bus := New()
	ch := bus.Subscribe(shared.EventModelUpdated)
	bus.Close()

	bus.PublishModelUpdated(1, 0.9, 0.1)

	if _, open := <-ch; open {
		t.Error("expected subscriber channel closed")
	}
}
