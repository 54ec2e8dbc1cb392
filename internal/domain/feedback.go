package domain

import "strings"

// FeedbackValue is a user signal on one result of one past search.
type FeedbackValue int

const (
	FeedbackDisfavored FeedbackValue = -1
	FeedbackNeutral    FeedbackValue = 0
	FeedbackFavored    FeedbackValue = 1
)

// Valid reports whether v is one of -1, 0, 1.
func (v FeedbackValue) Valid() bool {
	switch v {
	case FeedbackDisfavored, FeedbackNeutral, FeedbackFavored:
		return true
	}
	return false
}

// ParseFeedbackValue converts a raw integer, rejecting anything outside {-1,0,1}.
func ParseFeedbackValue(raw int) (FeedbackValue, error) {
	v := FeedbackValue(raw)
	if !v.Valid() {
		return 0, ErrInvalidFeedbackValue
	}
	return v, nil
}

// ResultFeedback is the ledger entry for one (search, result) pair. It is
// created by a reranking event and later updated by feedback submissions.
type ResultFeedback struct {
	ID          int64
	SearchID    int64
	ResultID    int64
	OldRank     int
	NewRank     int
	Feedback    FeedbackValue
	MethodsUsed Methods
}

// Methods records which reranking signals were engaged for an event.
type Methods struct {
	Feedback bool
	Metadata bool
}

const methodsNone = "none"

// String renders the stored form: "feedback", "metadata", "feedback,metadata" or "none".
func (m Methods) String() string {
	var parts []string
	if m.Feedback {
		parts = append(parts, "feedback")
	}
	if m.Metadata {
		parts = append(parts, "metadata")
	}
	if len(parts) == 0 {
		return methodsNone
	}
	return strings.Join(parts, ",")
}

// ParseMethods is the inverse of Methods.String. Unknown entries are ignored.
func ParseMethods(s string) Methods {
	var m Methods
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "feedback":
			m.Feedback = true
		case "metadata":
			m.Metadata = true
		}
	}
	return m
}

// FeedbackPair is one (result, value) entry of a feedback submission.
type FeedbackPair struct {
	Result   ResultPayload
	Feedback FeedbackValue
}

// ProvenanceEntry is one row of rank movement produced by a reranking event.
type ProvenanceEntry struct {
	Result  ResultPayload
	OldRank int
	NewRank int
}
