package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TagRepository struct {
	db dbtx
}

func NewTagRepository(pool *pgxpool.Pool) *TagRepository {
	return &TagRepository{db: pool}
}

func NewTagRepositoryWithTx(tx pgx.Tx) *TagRepository {
	return &TagRepository{db: tx}
}

// GetOrCreate returns the id of the (name, portal) tag, creating it if needed.
func (r *TagRepository) GetOrCreate(ctx context.Context, name, portal string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO result_tag (name, portal) VALUES ($1, $2)
		 ON CONFLICT ON CONSTRAINT uq_result_tag DO NOTHING
		 RETURNING id`,
		name, portal,
	).Scan(&id)
	if err == nil || !errors.Is(err, pgx.ErrNoRows) {
		return id, err
	}

	// Lost the race or already present: read in a fresh statement so a row
	// committed by a concurrent writer is visible.
	err = r.db.QueryRow(ctx,
		`SELECT id FROM result_tag WHERE name = $1 AND portal = $2`,
		name, portal,
	).Scan(&id)
	return id, err
}

// GetByName returns the id of the (name, portal) tag without creating it.
func (r *TagRepository) GetByName(ctx context.Context, name, portal string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM result_tag WHERE name = $1 AND portal = $2`,
		name, portal,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func (r *TagRepository) Link(ctx context.Context, resultID, tagID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO link_results_tags (result_id, tag_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		resultID, tagID,
	)
	return err
}

// Unlink removes the link and reports whether one existed. The tag itself is
// kept.
func (r *TagRepository) Unlink(ctx context.Context, resultID, tagID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM link_results_tags WHERE result_id = $1 AND tag_id = $2`,
		resultID, tagID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TagRepository) ListByResult(ctx context.Context, resultID int64) ([]domain.Tag, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.name, t.portal FROM result_tag t
		 JOIN link_results_tags l ON l.tag_id = t.id
		 WHERE l.result_id = $1
		 ORDER BY t.id`,
		resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Portal); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
