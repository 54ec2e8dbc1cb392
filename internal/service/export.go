package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/metrics"
	"github.com/cloo-solutions/rerankd/internal/pagination"
	"github.com/cloo-solutions/rerankd/internal/telemetry"
	"go.uber.org/zap"
)

const defaultExportPageSize = 100

// ExportKeyPrefix is the object key prefix of every uploaded export.
const ExportKeyPrefix = "exports/"

// ExportSink stores a serialized export under a key.
type ExportSink interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
}

// FeedbackEntry is one reranked result of a search with the feedback it got.
type FeedbackEntry struct {
	ResultID    int64                `json:"result_id"`
	OldRank     int                  `json:"old_rank"`
	NewRank     int                  `json:"new_rank"`
	Feedback    domain.FeedbackValue `json:"feedback"`
	MethodsUsed string               `json:"methods_used"`
	Result      domain.ResultPayload `json:"result"`
}

// SearchHistory is a search with everything recorded against it.
type SearchHistory struct {
	SearchID       int64           `json:"search_id"`
	ConversationID string          `json:"conversation_id"`
	QueryText      string          `json:"user_search"`
	Portal         string          `json:"portal"`
	Timestamp      time.Time       `json:"timestamp"`
	SearchTargets  []string        `json:"search_targets"`
	Entries        []FeedbackEntry `json:"results"`
}

// ExportInput selects one page of the history.
type ExportInput struct {
	Cursor string
	Limit  int
}

// ExportOutput is one page of the history.
type ExportOutput struct {
	Items   []SearchHistory
	Cursor  string
	HasMore bool
}

// ExportService reads the feedback history back out of the store.
type ExportService struct {
	txRunner TxRunner
	clock    Clock
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewExportService(txRunner TxRunner, logger *zap.Logger, m *metrics.Metrics) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{txRunner: txRunner, clock: SystemClock{}, logger: logger, metrics: m}
}

// NewExportServiceWithClock creates an ExportService with a custom clock (for testing)
func NewExportServiceWithClock(txRunner TxRunner, clock Clock, logger *zap.Logger, m *metrics.Metrics) *ExportService {
	s := NewExportService(txRunner, logger, m)
	s.clock = clock
	return s
}

// ExportFeedbackHistory returns one page of searches, oldest first, each with
// its feedback entries ordered by new rank.
func (s *ExportService) ExportFeedbackHistory(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExportService.ExportFeedbackHistory", telemetry.SpanAttributes{
		Operation: "export",
	})
	defer span.End()

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultExportPageSize
	}

	var out ExportOutput
	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		page, err := repos.Searches().ListWithCursor(ctx, cursor, limit)
		if err != nil {
			return err
		}

		items := make([]SearchHistory, 0, len(page.Items))
		results := make(map[int64]domain.ResultPayload)
		for _, search := range page.Items {
			h, err := loadHistory(ctx, repos, search, results)
			if err != nil {
				return err
			}
			items = append(items, h)
		}

		out = ExportOutput{Items: items, Cursor: page.NextCursor, HasMore: page.HasMore}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return &out, nil
}

func loadHistory(ctx context.Context, repos TxRepositories, search *domain.Search, results map[int64]domain.ResultPayload) (SearchHistory, error) {
	h := SearchHistory{
		SearchID:       search.ID,
		ConversationID: search.ConversationID,
		QueryText:      search.QueryText,
		Portal:         search.Portal,
		Timestamp:      search.Timestamp,
		SearchTargets:  []string{},
		Entries:        []FeedbackEntry{},
	}

	targets, err := repos.Feedback().ListSearchTargets(ctx, search.ID)
	if err != nil {
		return h, err
	}
	if targets != nil {
		h.SearchTargets = targets
	}

	rows, err := repos.Feedback().ListBySearch(ctx, search.ID)
	if err != nil {
		return h, err
	}
	for _, fb := range rows {
		payload, ok := results[fb.ResultID]
		if !ok {
			res, err := repos.Results().GetByID(ctx, fb.ResultID)
			if err != nil {
				return h, err
			}
			payload = res.ResultPayload
			results[fb.ResultID] = payload
		}
		h.Entries = append(h.Entries, FeedbackEntry{
			ResultID:    fb.ResultID,
			OldRank:     fb.OldRank,
			NewRank:     fb.NewRank,
			Feedback:    fb.Feedback,
			MethodsUsed: fb.MethodsUsed.String(),
			Result:      payload,
		})
	}
	return h, nil
}

// ExportAll walks every page of the history.
func (s *ExportService) ExportAll(ctx context.Context) ([]SearchHistory, error) {
	var all []SearchHistory
	cursor := ""
	for {
		page, err := s.ExportFeedbackHistory(ctx, ExportInput{Cursor: cursor, Limit: defaultExportPageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if !page.HasMore {
			return all, nil
		}
		cursor = page.Cursor
	}
}

// ExportToSink writes the full history as one JSON document and returns the
// object key it was stored under.
func (s *ExportService) ExportToSink(ctx context.Context, sink ExportSink) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExportService.ExportToSink", telemetry.SpanAttributes{
		Operation: "export_to_sink",
	})
	defer span.End()

	all, err := s.ExportAll(ctx)
	if err != nil {
		s.metrics.IncExports(metrics.StatusFailure)
		span.SetError(err)
		return "", err
	}
	if all == nil {
		all = []SearchHistory{}
	}

	body, err := json.Marshal(all)
	if err != nil {
		s.metrics.IncExports(metrics.StatusFailure)
		return "", fmt.Errorf("marshal export: %w", err)
	}

	key := ExportKey(s.clock.Now())
	if err := sink.PutObject(ctx, key, "application/json", body); err != nil {
		s.metrics.IncExports(metrics.StatusFailure)
		span.SetError(err)
		return "", fmt.Errorf("upload export: %w", err)
	}

	s.metrics.IncExports(metrics.StatusSuccess)
	s.logger.Info("feedback history exported",
		zap.String("key", key),
		zap.Int("searches", len(all)),
		zap.Int("bytes", len(body)),
	)
	return key, nil
}

// ExportKey is the object key for an export taken at t.
func ExportKey(t time.Time) string {
	return ExportKeyPrefix + "feedback-history-" + t.UTC().Format("20060102T150405Z") + ".json"
}
