package events

import (
	"encoding/json"
	"sync"
	"time"

	"wardrobe/internal/models"
)

const (
	EventBookingCreated    = "booking_created"
	EventBookingCancelled  = "booking_cancelled"
	EventReturnInitiated   = "return_initiated"
	EventReturnPhotosAdded = "return_photos_added"
	EventReturnUnderReview = "return_under_review"
	EventReturnApproved    = "return_approved"
	EventReturnDisputed    = "return_disputed"
	EventDisputeResolved   = "dispute_resolved"
	EventBookingOverdue    = "booking_overdue"
)

// LifecycleEvents lists every event type the rental core publishes.
var LifecycleEvents = []string{
	EventBookingCreated,
	EventBookingCancelled,
	EventReturnInitiated,
	EventReturnPhotosAdded,
	EventReturnUnderReview,
	EventReturnApproved,
	EventReturnDisputed,
	EventDisputeResolved,
	EventBookingOverdue,
}

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	RenterID    int64     `json:"renter_id"`
	OwnerID     int64     `json:"owner_id"`
	ItemID      int64     `json:"item_id"`
	ItemName    string    `json:"item_name,omitempty"`
	Status      string    `json:"status"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	ChangedBy   string    `json:"changed_by,omitempty"`
	ChangedByID int64     `json:"changed_by_id,omitempty"`
}

// ReturnEventPayload is the return snapshot handed to event consumers.
type ReturnEventPayload struct {
	ReturnID     int64  `json:"return_id"`
	BookingID    int64  `json:"booking_id"`
	ItemID       int64  `json:"item_id"`
	RenterID     int64  `json:"renter_id"`
	OwnerID      int64  `json:"owner_id"`
	Status       string `json:"status"`
	Photos       int    `json:"photos"`
	Resolution   string `json:"resolution,omitempty"`
	RefundAmount int64  `json:"refund_amount,omitempty"`
	ChangedBy    string `json:"changed_by,omitempty"`
	ChangedByID  int64  `json:"changed_by_id,omitempty"`
}

func NewBookingPayload(b *models.Booking, changedBy string, changedByID int64) BookingEventPayload {
	return BookingEventPayload{
		BookingID:   b.ID,
		RenterID:    b.RenterID,
		OwnerID:     b.OwnerID,
		ItemID:      b.ItemID,
		ItemName:    b.ItemName,
		Status:      b.Status,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		ChangedBy:   changedBy,
		ChangedByID: changedByID,
	}
}

func NewReturnPayload(r *models.Return, changedBy string, changedByID int64) ReturnEventPayload {
	p := ReturnEventPayload{
		ReturnID:    r.ID,
		BookingID:   r.BookingID,
		ItemID:      r.ItemID,
		RenterID:    r.RenterID,
		OwnerID:     r.OwnerID,
		Status:      r.Status,
		Photos:      len(r.Photos),
		ChangedBy:   changedBy,
		ChangedByID: changedByID,
	}
	if r.Resolution != nil {
		p.Resolution = r.Resolution.Resolution
		p.RefundAmount = r.Resolution.RefundAmount
	}
	return p
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers handler for every lifecycle event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, eventType := range LifecycleEvents {
		b.Subscribe(eventType, handler)
	}
}

// Publish notifies subscribers of the event type. Handlers run synchronously
// and their errors do not reach the publisher.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}
