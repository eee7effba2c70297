package events

import (
	"encoding/json"
	"testing"

	"wardrobe/internal/models"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventBookingCreated, map[string]string{"foo": "bar"})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventBookingCreated {
		t.Errorf("expected type %s, got %s", EventBookingCreated, received.Type)
	}

	var decoded map[string]string
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded["foo"] != "bar" {
		t.Errorf("expected foo=bar, got %s", decoded["foo"])
	}
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	seen := map[string]int{}
	bus.SubscribeAll(func(e *Event) error { seen[e.Type]++; return nil })

	for _, eventType := range LifecycleEvents {
		bus.Publish(&Event{Type: eventType})
	}
	bus.Publish(&Event{Type: "unrelated"})

	if len(seen) != len(LifecycleEvents) {
		t.Errorf("expected %d event types, got %d", len(LifecycleEvents), len(seen))
	}
	if seen["unrelated"] != 0 {
		t.Errorf("unexpected delivery of unrelated event")
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON(EventReturnApproved, nil); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}

func TestNewReturnPayload(t *testing.T) {
	ret := &models.Return{
		ID:        7,
		BookingID: 3,
		Status:    models.ReturnStatusResolved,
		Photos:    []models.Photo{{URL: "a"}, {URL: "b"}},
		Resolution: &models.Resolution{
			Resolution:   models.ResolutionPartialRefund,
			RefundAmount: 500,
		},
	}

	p := NewReturnPayload(ret, "admin", 9)
	if p.ReturnID != 7 || p.BookingID != 3 {
		t.Errorf("unexpected ids: %+v", p)
	}
	if p.Photos != 2 {
		t.Errorf("expected 2 photos, got %d", p.Photos)
	}
	if p.Resolution != models.ResolutionPartialRefund || p.RefundAmount != 500 {
		t.Errorf("unexpected resolution: %+v", p)
	}
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent(EventBookingCancelled, BookingEventPayload{BookingID: 123})
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded BookingEventPayload
	if err := json.Unmarshal(event.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.BookingID != 123 {
		t.Errorf("expected BookingID 123, got %d", decoded.BookingID)
	}
}
