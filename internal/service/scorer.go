package service

import (
	"context"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/telemetry"
)

// FeedbackScorer derives a relevance score for a result from the feedback
// recorded on past searches with the same query text.
type FeedbackScorer struct {
	txRunner TxRunner
}

func NewFeedbackScorer(txRunner TxRunner) *FeedbackScorer {
	return &FeedbackScorer{txRunner: txRunner}
}

// ScoreInput identifies what to score. Query text matches exactly. An empty
// SearchPortal considers past searches from every portal.
type ScoreInput struct {
	QueryText    string
	Result       domain.ResultPayload
	SearchPortal string
}

// Score never creates anything: a result the store has not seen yet has no
// history and scores domain.NoHistory.
func (s *FeedbackScorer) Score(ctx context.Context, input ScoreInput) (domain.Score, error) {
	ctx, span := telemetry.StartSpan(ctx, "FeedbackScorer.Score", telemetry.SpanAttributes{
		Portal:    input.Result.Portal,
		Operation: "score",
	})
	defer span.End()

	if err := domain.ValidateResultPayload(&input.Result); err != nil {
		return domain.NoHistory, err
	}

	score := domain.NoHistory
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		searchIDs, err := repos.Searches().IDsByQuery(ctx, input.QueryText, input.SearchPortal)
		if err != nil {
			return err
		}
		score, err = scoreWith(ctx, repos, searchIDs, input.Result)
		return err
	})
	if err != nil {
		span.SetError(err)
		return domain.NoHistory, err
	}
	return score, nil
}

func scoreWith(ctx context.Context, repos TxRepositories, searchIDs []int64, p domain.ResultPayload) (domain.Score, error) {
	if len(searchIDs) == 0 {
		return domain.NoHistory, nil
	}

	resultID, found, err := lookupWith(ctx, repos, p)
	if err != nil {
		return domain.NoHistory, err
	}
	if !found {
		return domain.NoHistory, nil
	}

	values, err := repos.Feedback().ListValues(ctx, searchIDs, resultID)
	if err != nil {
		return domain.NoHistory, err
	}
	return domain.ScoreFromFeedback(values), nil
}
