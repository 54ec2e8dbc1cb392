package domain

import (
	"fmt"
	"time"
)

// Search is one logged user query. Rows are immutable once created.
type Search struct {
	ID             int64
	ConversationID string
	QueryText      string
	Portal         string
	Timestamp      time.Time
}

// SearchTargetFeedback records what the user says they were actually looking for.
type SearchTargetFeedback struct {
	ID           int64
	SearchID     int64
	SearchTarget string
}

// ValidateSearch validates a Search before it is persisted
func ValidateSearch(s *Search) error {
	if s == nil {
		return fmt.Errorf("search cannot be nil")
	}

	if s.ConversationID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "search ConversationID is required", ErrMissingRequiredField)
	}

	if s.QueryText == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "search QueryText is required", ErrMissingRequiredField)
	}

	if s.Portal == "" {
		return ErrMissingPortal
	}

	return nil
}
