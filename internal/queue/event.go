// Package queue defines message payloads exchanged over the message broker
// and the consumer that drains them.
package queue

import (
	"time"

	"github.com/iliyamo/movie-explorer/internal/model"
)

const (
	// SearchRecordedQueue carries one message per counted search.
	SearchRecordedQueue = "search.recorded"
	// EmailTokenQueue carries login codes waiting for delivery.
	EmailTokenQueue = "auth.email_token"
)

// SearchRecordedEvent is published when a client reports a search that
// returned results.  Movie is the first result of that search; its fields
// seed the counter row when the term is seen for the first time.
type SearchRecordedEvent struct {
	SearchTerm    string      `json:"search_term"`
	Movie         model.Movie `json:"movie"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	RecordedAt    time.Time   `json:"recorded_at"`
}

// EmailTokenEvent asks a delivery worker to send a login code and magic link.
type EmailTokenEvent struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Code     string    `json:"code"`
	MagicURL string    `json:"magic_url"`
	Expire   time.Time `json:"expire"`
}
