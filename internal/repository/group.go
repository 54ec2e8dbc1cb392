package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GroupRepository struct {
	db dbtx
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{db: pool}
}

func NewGroupRepositoryWithTx(tx pgx.Tx) *GroupRepository {
	return &GroupRepository{db: tx}
}

// GetOrCreate returns the id of the (name, description, portal) group,
// creating it if needed. A nil description is its own group.
func (r *GroupRepository) GetOrCreate(ctx context.Context, ref domain.GroupRef, portal string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO result_group (name, description, portal) VALUES ($1, $2, $3)
		 ON CONFLICT ON CONSTRAINT uq_result_group DO NOTHING
		 RETURNING id`,
		ref.Name, ref.Description, portal,
	).Scan(&id)
	if err == nil || !errors.Is(err, pgx.ErrNoRows) {
		return id, err
	}

	id, found, err := r.Get(ctx, ref, portal)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, pgx.ErrNoRows
	}
	return id, nil
}

// Get returns the id of the (name, description, portal) group without
// creating it.
func (r *GroupRepository) Get(ctx context.Context, ref domain.GroupRef, portal string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM result_group
		 WHERE name = $1 AND description IS NOT DISTINCT FROM $2 AND portal = $3`,
		ref.Name, ref.Description, portal,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func (r *GroupRepository) Link(ctx context.Context, resultID, groupID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO link_results_groups (result_id, group_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		resultID, groupID,
	)
	return err
}

func (r *GroupRepository) Unlink(ctx context.Context, resultID, groupID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM link_results_groups WHERE result_id = $1 AND group_id = $2`,
		resultID, groupID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GroupRepository) ListByResult(ctx context.Context, resultID int64) ([]domain.Group, error) {
	rows, err := r.db.Query(ctx,
		`SELECT g.id, g.name, g.description, g.portal FROM result_group g
		 JOIN link_results_groups l ON l.group_id = g.id
		 WHERE l.result_id = $1
		 ORDER BY g.id`,
		resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Portal); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
