package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/pagination"
	"github.com/cloo-solutions/rerankd/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchRepository stores logged user searches.
type SearchRepository struct {
	db dbtx
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{db: pool}
}

func NewSearchRepositoryWithTx(tx pgx.Tx) *SearchRepository {
	return &SearchRepository{db: tx}
}

func (r *SearchRepository) Create(ctx context.Context, s *domain.Search) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO search (conversation_id, user_search, portal, searched_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		s.ConversationID, s.QueryText, s.Portal, s.Timestamp,
	).Scan(&s.ID)
}

func (r *SearchRepository) GetByID(ctx context.Context, id int64) (*domain.Search, error) {
	var s domain.Search
	err := r.db.QueryRow(ctx,
		`SELECT id, conversation_id, user_search, portal, searched_at
		 FROM search WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.ConversationID, &s.QueryText, &s.Portal, &s.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSearchNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SearchRepository) LatestID(ctx context.Context, conversationID, queryText string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM search
		 WHERE conversation_id = $1 AND user_search = $2
		 ORDER BY id DESC
		 LIMIT 1`,
		conversationID, queryText,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func (r *SearchRepository) IDsByQuery(ctx context.Context, queryText, portal string) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM search
		 WHERE user_search = $1 AND ($2::text IS NULL OR portal = $2)
		 ORDER BY id DESC`,
		queryText, nullableString(portal),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListWithCursor pages through every search oldest first.
func (r *SearchRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.SearchPageResult, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, conversation_id, user_search, portal, searched_at
			 FROM search
			 WHERE (searched_at, id) > ($1, $2)
			 ORDER BY searched_at, id
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, conversation_id, user_search, portal, searched_at
			 FROM search
			 ORDER BY searched_at, id
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Search
	for rows.Next() {
		var s domain.Search
		if err := rows.Scan(&s.ID, &s.ConversationID, &s.QueryText, &s.Portal, &s.Timestamp); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.Timestamp)
	}

	return &service.SearchPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
