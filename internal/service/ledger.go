package service

import (
	"context"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/metrics"
	"github.com/cloo-solutions/rerankd/internal/telemetry"
	"go.uber.org/zap"
)

// FeedbackLedger records what a reranking produced and what the user thought
// of it. Both operations attach to the most recent search for the
// (conversation, query) pair and do nothing when there is none.
type FeedbackLedger struct {
	txRunner      TxRunner
	resolver      *IdentityResolver
	defaultPortal string
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

func NewFeedbackLedger(txRunner TxRunner, resolver *IdentityResolver, defaultPortal string, logger *zap.Logger, m *metrics.Metrics) *FeedbackLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackLedger{
		txRunner:      txRunner,
		resolver:      resolver,
		defaultPortal: defaultPortal,
		logger:        logger,
		metrics:       m,
	}
}

// RecordFeedbackInput is one user feedback submission.
type RecordFeedbackInput struct {
	ConversationID string
	QueryText      string
	SearchTarget   *string
	Pairs          []domain.FeedbackPair
}

// RecordFeedbackOutput summarizes what a submission changed.
type RecordFeedbackOutput struct {
	SearchID       int64
	Attached       bool
	Updated        int
	ResultsCreated int
}

// RecordFeedback applies a feedback submission in one transaction. A pair whose
// result was never shown for the search still creates the canonical result,
// but no feedback row is inserted for it.
func (l *FeedbackLedger) RecordFeedback(ctx context.Context, input RecordFeedbackInput) (*RecordFeedbackOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "FeedbackLedger.RecordFeedback", telemetry.SpanAttributes{
		ConversationID: input.ConversationID,
		Operation:      "record_feedback",
	})
	defer span.End()

	pairs := make([]domain.FeedbackPair, len(input.Pairs))
	for i, pair := range input.Pairs {
		if !pair.Feedback.Valid() {
			return nil, domain.ErrInvalidFeedbackValue
		}
		pair.Result = pair.Result.WithPortal(l.defaultPortal)
		if err := domain.ValidateResultPayload(&pair.Result); err != nil {
			return nil, err
		}
		pairs[i] = pair
	}

	var out RecordFeedbackOutput
	err := l.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		out = RecordFeedbackOutput{}

		searchID, found, err := repos.Searches().LatestID(ctx, input.ConversationID, input.QueryText)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		out.SearchID = searchID
		out.Attached = true

		if input.SearchTarget != nil && *input.SearchTarget != "" {
			target := &domain.SearchTargetFeedback{SearchID: searchID, SearchTarget: *input.SearchTarget}
			if err := repos.Feedback().CreateSearchTarget(ctx, target); err != nil {
				return err
			}
		}

		for _, pair := range pairs {
			resultID, created, err := l.resolver.resolveWith(ctx, repos, pair.Result)
			if err != nil {
				return err
			}
			if created {
				out.ResultsCreated++
			}
			updated, err := repos.Feedback().UpdateFeedback(ctx, searchID, resultID, pair.Feedback)
			if err != nil {
				return err
			}
			if updated {
				out.Updated++
			}
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if !out.Attached {
		l.metrics.IncFeedbackSubmissions(metrics.OutcomeNoSearch)
		l.logger.Info("feedback ignored, no matching search",
			zap.String("conversation_id", input.ConversationID),
		)
		return &out, nil
	}

	l.metrics.IncFeedbackSubmissions(metrics.OutcomeRecorded)
	l.logger.Debug("feedback recorded",
		zap.Int64("search_id", out.SearchID),
		zap.Int("pairs", len(pairs)),
		zap.Int("updated", out.Updated),
		zap.Int("results_created", out.ResultsCreated),
	)
	return &out, nil
}

// RecordProvenanceInput describes one reranking outcome.
type RecordProvenanceInput struct {
	ConversationID string
	QueryText      string
	Methods        domain.Methods
	Entries        []domain.ProvenanceEntry
}

// RecordProvenance stores old and new rank for every entry with a neutral
// feedback value. Rows that already exist for the search are left as they are.
// It returns the number of rows inserted.
func (l *FeedbackLedger) RecordProvenance(ctx context.Context, input RecordProvenanceInput) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "FeedbackLedger.RecordProvenance", telemetry.SpanAttributes{
		ConversationID: input.ConversationID,
		Operation:      "record_provenance",
	})
	defer span.End()

	inserted := 0
	err := l.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		inserted = 0

		searchID, found, err := repos.Searches().LatestID(ctx, input.ConversationID, input.QueryText)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		for _, entry := range input.Entries {
			p := entry.Result.WithPortal(l.defaultPortal)
			resultID, _, err := l.resolver.resolveWith(ctx, repos, p)
			if err != nil {
				return err
			}
			ok, err := repos.Feedback().InsertIfAbsent(ctx, &domain.ResultFeedback{
				SearchID:    searchID,
				ResultID:    resultID,
				OldRank:     entry.OldRank,
				NewRank:     entry.NewRank,
				Feedback:    domain.FeedbackNeutral,
				MethodsUsed: input.Methods,
			})
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	return inserted, nil
}
