package repository

import (
	"context"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/metrics"
	"github.com/cloo-solutions/rerankd/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TxRunner provides transactional repositories using a pgx pool. Transactions
// that fail with a transient store error are replayed under the retry policy;
// once the policy is exhausted the caller gets domain.ErrStorageUnavailable.
type TxRunner struct {
	pool    *pgxpool.Pool
	policy  RetryPolicy
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewTxRunner(pool *pgxpool.Pool, policy RetryPolicy, logger *zap.Logger, m *metrics.Metrics) *TxRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxRunner{pool: pool, policy: policy, logger: logger, metrics: m}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	attempt := 0
	err := retryTransient(ctx, r.policy, func() error {
		attempt++
		return r.runOnce(ctx, fn)
	}, func(err error) {
		r.metrics.IncStoreRetries()
		r.logger.Warn("transient store failure, retrying transaction",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	})
	if err != nil && IsTransient(err) {
		return domain.StorageUnavailable(err)
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Searches() service.SearchRepositoryInterface {
	return NewSearchRepositoryWithTx(r.tx)
}

func (r *txRepos) Results() service.ResultRepositoryInterface {
	return NewResultRepositoryWithTx(r.tx)
}

func (r *txRepos) Tags() service.TagRepositoryInterface {
	return NewTagRepositoryWithTx(r.tx)
}

func (r *txRepos) Groups() service.GroupRepositoryInterface {
	return NewGroupRepositoryWithTx(r.tx)
}

func (r *txRepos) Feedback() service.FeedbackRepositoryInterface {
	return NewFeedbackRepositoryWithTx(r.tx)
}
