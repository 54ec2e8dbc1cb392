package service

import "context"

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Searches() SearchRepositoryInterface
	Results() ResultRepositoryInterface
	Tags() TagRepositoryInterface
	Groups() GroupRepositoryInterface
	Feedback() FeedbackRepositoryInterface
}

// TxRunner executes a function within a transaction.
//
// Implementations may replay fn after a transient store failure, so fn must
// not have side effects outside the repositories it is given.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
