package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedbackRepository stores per-(search, result) reranking provenance and
// the feedback users attach to it, plus free-text search targets.
type FeedbackRepository struct {
	db dbtx
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: pool}
}

func NewFeedbackRepositoryWithTx(tx pgx.Tx) *FeedbackRepository {
	return &FeedbackRepository{db: tx}
}

func (r *FeedbackRepository) InsertIfAbsent(ctx context.Context, fb *domain.ResultFeedback) (bool, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO search_reranking_feedback (search_id, result_id, old_rank, new_rank, feedback, methods_used)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT ON CONSTRAINT uq_search_result_feedback DO NOTHING
		 RETURNING id`,
		fb.SearchID, fb.ResultID, fb.OldRank, fb.NewRank, int16(fb.Feedback), fb.MethodsUsed.String(),
	).Scan(&fb.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *FeedbackRepository) UpdateFeedback(ctx context.Context, searchID, resultID int64, value domain.FeedbackValue) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE search_reranking_feedback
		 SET feedback = $1
		 WHERE search_id = $2 AND result_id = $3`,
		int16(value), searchID, resultID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListValues returns every feedback value recorded for resultID under any of
// the given searches.
func (r *FeedbackRepository) ListValues(ctx context.Context, searchIDs []int64, resultID int64) ([]domain.FeedbackValue, error) {
	if len(searchIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT feedback FROM search_reranking_feedback
		 WHERE search_id = ANY($1) AND result_id = $2`,
		searchIDs, resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []domain.FeedbackValue
	for rows.Next() {
		var v int16
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, domain.FeedbackValue(v))
	}
	return values, rows.Err()
}

func (r *FeedbackRepository) ListBySearch(ctx context.Context, searchID int64) ([]*domain.ResultFeedback, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, search_id, result_id, old_rank, new_rank, feedback, methods_used
		 FROM search_reranking_feedback
		 WHERE search_id = $1
		 ORDER BY new_rank, id`,
		searchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.ResultFeedback
	for rows.Next() {
		var fb domain.ResultFeedback
		var value int16
		var methods string
		if err := rows.Scan(&fb.ID, &fb.SearchID, &fb.ResultID, &fb.OldRank, &fb.NewRank, &value, &methods); err != nil {
			return nil, err
		}
		fb.Feedback = domain.FeedbackValue(value)
		fb.MethodsUsed = domain.ParseMethods(methods)
		items = append(items, &fb)
	}
	return items, rows.Err()
}

func (r *FeedbackRepository) CreateSearchTarget(ctx context.Context, t *domain.SearchTargetFeedback) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO search_target_feedback (search_id, search_target)
		 VALUES ($1, $2)
		 RETURNING id`,
		t.SearchID, t.SearchTarget,
	).Scan(&t.ID)
}

func (r *FeedbackRepository) ListSearchTargets(ctx context.Context, searchID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT search_target FROM search_target_feedback
		 WHERE search_id = $1
		 ORDER BY id`,
		searchID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
