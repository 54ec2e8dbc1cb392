package service

import (
	"context"
	"testing"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackScorer_Score(t *testing.T) {
	ctx := context.Background()
	a, b := testPayload("a"), testPayload("b")

	t.Run("no history", func(t *testing.T) {
		svc := newTestServices()

		score, err := svc.scorer.Score(ctx, ScoreInput{QueryText: "q", Result: a})
		require.NoError(t, err)
		assert.Equal(t, domain.NoHistory, score)
		assert.Equal(t, 0, svc.store.resultCount(), "scoring must not create results")
	})

	t.Run("averages across past searches with the same query", func(t *testing.T) {
		svc := newTestServices()
		svc.seedHistory(t, "c1", "q", []domain.ResultPayload{a, b}, []domain.FeedbackValue{1, -1})
		svc.seedHistory(t, "c2", "q", []domain.ResultPayload{a, b}, []domain.FeedbackValue{0, -1})

		score, err := svc.scorer.Score(ctx, ScoreInput{QueryText: "q", Result: a})
		require.NoError(t, err)
		assert.True(t, score.Known)
		assert.InDelta(t, 0.75, score.Value, 1e-9)

		score, err = svc.scorer.Score(ctx, ScoreInput{QueryText: "q", Result: b})
		require.NoError(t, err)
		assert.True(t, score.Known)
		assert.InDelta(t, 0.0, score.Value, 1e-9)
	})

	t.Run("query text matches exactly", func(t *testing.T) {
		svc := newTestServices()
		svc.seedHistory(t, "c1", "q", []domain.ResultPayload{a}, []domain.FeedbackValue{1})

		score, err := svc.scorer.Score(ctx, ScoreInput{QueryText: "Q", Result: a})
		require.NoError(t, err)
		assert.False(t, score.Known)
	})

	t.Run("result from another portal has no history", func(t *testing.T) {
		svc := newTestServices()
		svc.seedHistory(t, "c1", "q", []domain.ResultPayload{a}, []domain.FeedbackValue{1})

		other := a
		other.Portal = "Other"
		score, err := svc.scorer.Score(ctx, ScoreInput{QueryText: "q", Result: other})
		require.NoError(t, err)
		assert.False(t, score.Known)
	})

	t.Run("search portal filter", func(t *testing.T) {
		svc := newTestServices()
		svc.seedHistory(t, "c1", "q", []domain.ResultPayload{a}, []domain.FeedbackValue{1})

		score, err := svc.scorer.Score(ctx, ScoreInput{QueryText: "q", Result: a, SearchPortal: "Other"})
		require.NoError(t, err)
		assert.False(t, score.Known)

		score, err = svc.scorer.Score(ctx, ScoreInput{QueryText: "q", Result: a, SearchPortal: "DataSud"})
		require.NoError(t, err)
		assert.True(t, score.Known)
	})

	t.Run("shown without feedback counts as neutral", func(t *testing.T) {
		svc := newTestServices()
		_, err := svc.searches.LogSearch(ctx, LogSearchInput{ConversationID: "c1", QueryText: "q"})
		require.NoError(t, err)
		_, err = svc.ledger.RecordProvenance(ctx, RecordProvenanceInput{
			ConversationID: "c1",
			QueryText:      "q",
			Entries:        []domain.ProvenanceEntry{{Result: a}},
		})
		require.NoError(t, err)

		score, err := svc.scorer.Score(ctx, ScoreInput{QueryText: "q", Result: a})
		require.NoError(t, err)
		assert.Equal(t, domain.Score{Value: 0.5, Known: true}, score)
	})
}
