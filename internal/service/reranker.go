package service

import (
	"context"
	"sort"
	"time"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/metrics"
	"github.com/cloo-solutions/rerankd/internal/telemetry"
	"go.uber.org/zap"
)

// ResultGroup is the result list one portal returned for a query.
type ResultGroup struct {
	Portal  string
	Results []domain.ResultPayload
}

// RerankInput is one reranking request.
type RerankInput struct {
	QueryText      string
	ConversationID string
	Groups         []ResultGroup
	UseFeedback    bool
	UseMetadata    bool
}

// Reranker reorders the primary portal's results by past feedback and
// records what it did.
type Reranker struct {
	txRunner      TxRunner
	ledger        *FeedbackLedger
	primaryPortal string
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

func NewReranker(txRunner TxRunner, ledger *FeedbackLedger, primaryPortal string, logger *zap.Logger, m *metrics.Metrics) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		txRunner:      txRunner,
		ledger:        ledger,
		primaryPortal: primaryPortal,
		logger:        logger,
		metrics:       m,
	}
}

// Rerank returns every input result exactly once. Groups keep their input
// order; within a primary-portal group results are stably sorted by
// descending feedback score when UseFeedback is set. UseMetadata is recorded
// but does not affect ordering.
//
// Provenance is recorded after ordering. A failure to record it is logged and
// does not fail the rerank.
func (r *Reranker) Rerank(ctx context.Context, input RerankInput) ([]domain.ResultPayload, error) {
	ctx, span := telemetry.StartSpan(ctx, "Reranker.Rerank", telemetry.SpanAttributes{
		ConversationID: input.ConversationID,
		Portal:         r.primaryPortal,
		Operation:      "rerank",
	})
	defer span.End()

	start := time.Now()

	groups := make([]ResultGroup, len(input.Groups))
	var original []domain.ResultPayload
	for i, g := range input.Groups {
		results := make([]domain.ResultPayload, len(g.Results))
		for j, p := range g.Results {
			if g.Portal != "" {
				p.Portal = g.Portal
			}
			results[j] = p
		}
		groups[i] = ResultGroup{Portal: g.Portal, Results: results}
		original = append(original, results...)
	}

	for _, p := range original {
		if err := domain.ValidateResultPayload(&p); err != nil {
			return nil, err
		}
	}

	if input.UseFeedback {
		if err := r.sortByFeedback(ctx, input.QueryText, groups); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	final := make([]domain.ResultPayload, 0, len(original))
	for _, g := range groups {
		final = append(final, g.Results...)
	}

	methods := domain.Methods{Feedback: input.UseFeedback, Metadata: input.UseMetadata}
	if _, err := r.ledger.RecordProvenance(ctx, RecordProvenanceInput{
		ConversationID: input.ConversationID,
		QueryText:      input.QueryText,
		Methods:        methods,
		Entries:        provenanceEntries(original, final),
	}); err != nil {
		r.metrics.IncProvenanceFailures()
		r.logger.Warn("failed to record rerank provenance",
			zap.String("conversation_id", input.ConversationID),
			zap.Error(err),
		)
	}

	r.metrics.ObserveRerank(input.UseFeedback, time.Since(start).Seconds())
	return final, nil
}

// sortByFeedback scores every primary-portal result against all past searches
// with the same query text, in a single read transaction, then sorts each
// eligible group in place.
func (r *Reranker) sortByFeedback(ctx context.Context, queryText string, groups []ResultGroup) error {
	scores := make([][]domain.Score, len(groups))

	err := r.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		searchIDs, err := repos.Searches().IDsByQuery(ctx, queryText, "")
		if err != nil {
			return err
		}
		for i, g := range groups {
			if g.Portal != r.primaryPortal {
				continue
			}
			scores[i] = make([]domain.Score, len(g.Results))
			for j, p := range g.Results {
				scores[i][j], err = scoreWith(ctx, repos, searchIDs, p)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, g := range groups {
		if scores[i] == nil {
			continue
		}
		groups[i].Results = sortByScore(g.Results, scores[i])
	}
	return nil
}

// sortByScore orders results by descending score value. Ties, including
// results without history, keep their input order.
func sortByScore(results []domain.ResultPayload, scores []domain.Score) []domain.ResultPayload {
	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]].Value > scores[idx[b]].Value
	})

	out := make([]domain.ResultPayload, len(results))
	for i, j := range idx {
		out[i] = results[j]
	}
	return out
}

// provenanceEntries pairs each result of the final ordering with its position
// in the original concatenated input. Identical results map to the first
// occurrence.
func provenanceEntries(original, final []domain.ResultPayload) []domain.ProvenanceEntry {
	oldRank := make(map[string]int, len(original))
	for i, p := range original {
		key := domain.IdentityKey(p)
		if _, ok := oldRank[key]; !ok {
			oldRank[key] = i
		}
	}

	entries := make([]domain.ProvenanceEntry, len(final))
	for i, p := range final {
		entries[i] = domain.ProvenanceEntry{
			Result:  p,
			OldRank: oldRank[domain.IdentityKey(p)],
			NewRank: i,
		}
	}
	return entries
}
