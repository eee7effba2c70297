package models

import "time"

// IdempotentResponse is a stored reply to a mutating request, replayed when
// the same principal repeats the same Idempotency-Key.
type IdempotentResponse struct {
	Key        string    `json:"key"`
	StatusCode int       `json:"status_code"`
	Body       []byte    `json:"body"`
	StoredAt   time.Time `json:"stored_at"`
}
