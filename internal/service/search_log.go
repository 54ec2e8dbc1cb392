package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/telemetry"
)

// Clock defines interface for time (for testing)
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// SearchLogService records user searches so feedback can later attach to them.
type SearchLogService struct {
	txRunner      TxRunner
	primaryPortal string
	clock         Clock
}

func NewSearchLogService(txRunner TxRunner, primaryPortal string) *SearchLogService {
	return &SearchLogService{txRunner: txRunner, primaryPortal: primaryPortal, clock: SystemClock{}}
}

// NewSearchLogServiceWithClock creates a SearchLogService with a custom clock (for testing)
func NewSearchLogServiceWithClock(txRunner TxRunner, primaryPortal string, clock Clock) *SearchLogService {
	return &SearchLogService{txRunner: txRunner, primaryPortal: primaryPortal, clock: clock}
}

// LogSearchInput represents the input for logging a search
type LogSearchInput struct {
	ConversationID string
	QueryText      string
	Portal         string
	Timestamp      time.Time
}

// LogSearch creates a Search row. A zero timestamp means now and an empty
// portal means the primary portal.
func (s *SearchLogService) LogSearch(ctx context.Context, input LogSearchInput) (*domain.Search, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchLogService.LogSearch", telemetry.SpanAttributes{
		ConversationID: input.ConversationID,
		Portal:         input.Portal,
		Operation:      "log_search",
	})
	defer span.End()

	search := &domain.Search{
		ConversationID: input.ConversationID,
		QueryText:      input.QueryText,
		Portal:         input.Portal,
		Timestamp:      input.Timestamp,
	}
	if search.Portal == "" {
		search.Portal = s.primaryPortal
	}
	if search.Timestamp.IsZero() {
		search.Timestamp = s.clock.Now()
	}
	search.Timestamp = search.Timestamp.UTC()

	if err := domain.ValidateSearch(search); err != nil {
		return nil, err
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		search.ID = 0
		return repos.Searches().Create(ctx, search)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return search, nil
}
