package service

import (
	"context"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/pagination"
)

// SearchRepositoryInterface persists logged searches.
type SearchRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Search) error
	GetByID(ctx context.Context, id int64) (*domain.Search, error)
	// LatestID returns the most recent search for the pair, or false if none.
	LatestID(ctx context.Context, conversationID, queryText string) (int64, bool, error)
	// IDsByQuery lists searches with this exact query text, newest first.
	// An empty portal matches every portal.
	IDsByQuery(ctx context.Context, queryText, portal string) ([]int64, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*SearchPageResult, error)
}

// SearchPageResult is one page of searches in (searched_at, id) order.
type SearchPageResult struct {
	Items      []*domain.Search
	NextCursor string
	HasMore    bool
}

// ResultRepositoryInterface persists canonical results.
type ResultRepositoryInterface interface {
	// InsertIfAbsent stores r unless a result with the same portal and
	// identity key exists, and returns the id of whichever row survives.
	InsertIfAbsent(ctx context.Context, r *domain.Result) (id int64, created bool, err error)
	FindIDByIdentity(ctx context.Context, portal, identityKey string) (int64, bool, error)
	// GetByID loads a result with its tags and groups.
	GetByID(ctx context.Context, id int64) (*domain.Result, error)
}

// TagRepositoryInterface persists tags and their links to results.
type TagRepositoryInterface interface {
	GetOrCreate(ctx context.Context, name, portal string) (int64, error)
	GetByName(ctx context.Context, name, portal string) (int64, bool, error)
	Link(ctx context.Context, resultID, tagID int64) error
	Unlink(ctx context.Context, resultID, tagID int64) (bool, error)
	ListByResult(ctx context.Context, resultID int64) ([]domain.Tag, error)
}

// GroupRepositoryInterface persists groups and their links to results.
type GroupRepositoryInterface interface {
	GetOrCreate(ctx context.Context, ref domain.GroupRef, portal string) (int64, error)
	Get(ctx context.Context, ref domain.GroupRef, portal string) (int64, bool, error)
	Link(ctx context.Context, resultID, groupID int64) error
	Unlink(ctx context.Context, resultID, groupID int64) (bool, error)
	ListByResult(ctx context.Context, resultID int64) ([]domain.Group, error)
}

// FeedbackRepositoryInterface persists reranking provenance, feedback values
// and search targets.
type FeedbackRepositoryInterface interface {
	// InsertIfAbsent records a provenance row; an existing row for the same
	// (search, result) pair is left untouched.
	InsertIfAbsent(ctx context.Context, fb *domain.ResultFeedback) (bool, error)
	// UpdateFeedback sets the feedback value on an existing row and reports
	// whether a row was found.
	UpdateFeedback(ctx context.Context, searchID, resultID int64, value domain.FeedbackValue) (bool, error)
	ListValues(ctx context.Context, searchIDs []int64, resultID int64) ([]domain.FeedbackValue, error)
	ListBySearch(ctx context.Context, searchID int64) ([]*domain.ResultFeedback, error)
	CreateSearchTarget(ctx context.Context, t *domain.SearchTargetFeedback) error
	ListSearchTargets(ctx context.Context, searchID int64) ([]string, error)
}
