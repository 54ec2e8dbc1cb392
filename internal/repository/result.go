package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRepository stores canonical results. Rows are keyed by
// (portal, identity_key) and never updated once written.
type ResultRepository struct {
	db dbtx
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: pool}
}

func NewResultRepositoryWithTx(tx pgx.Tx) *ResultRepository {
	return &ResultRepository{db: tx}
}

func (r *ResultRepository) InsertIfAbsent(ctx context.Context, res *domain.Result) (int64, bool, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO result (identity_key, title, url, description, portal,
		                     owner_org, owner_org_description, maintainer,
		                     dataset_publication_date, dataset_modification_date,
		                     metadata_creation_date, metadata_modification_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT ON CONSTRAINT uq_result_identity DO NOTHING
		 RETURNING id`,
		res.IdentityKey, res.Title, res.URL, res.Description, res.Portal,
		res.OwnerOrg, res.OwnerOrgDescription, res.Maintainer,
		res.DatasetPublicationDate, res.DatasetModificationDate,
		res.MetadataCreationDate, res.MetadataModificationDate,
	).Scan(&id)
	if err == nil {
		res.ID = id
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, err
	}

	id, found, err := r.FindIDByIdentity(ctx, res.Portal, res.IdentityKey)
	if err != nil {
		return 0, false, err
	}
	if !found {
		// the conflicting row was removed between the insert and the read
		return 0, false, domain.ErrResultNotFound
	}
	res.ID = id
	return id, false, nil
}

func (r *ResultRepository) FindIDByIdentity(ctx context.Context, portal, identityKey string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM result WHERE portal = $1 AND identity_key = $2`,
		portal, identityKey,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func (r *ResultRepository) GetByID(ctx context.Context, id int64) (*domain.Result, error) {
	var res domain.Result
	err := r.db.QueryRow(ctx,
		`SELECT id, identity_key, title, url, description, portal,
		        owner_org, owner_org_description, maintainer,
		        dataset_publication_date, dataset_modification_date,
		        metadata_creation_date, metadata_modification_date
		 FROM result WHERE id = $1`,
		id,
	).Scan(&res.ID, &res.IdentityKey, &res.Title, &res.URL, &res.Description, &res.Portal,
		&res.OwnerOrg, &res.OwnerOrgDescription, &res.Maintainer,
		&res.DatasetPublicationDate, &res.DatasetModificationDate,
		&res.MetadataCreationDate, &res.MetadataModificationDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResultNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT t.name FROM result_tag t
		 JOIN link_results_tags l ON l.tag_id = t.id
		 WHERE l.result_id = $1
		 ORDER BY t.name`,
		id,
	)
	if err != nil {
		return nil, err
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	res.Tags = tags

	rows, err = r.db.Query(ctx,
		`SELECT g.name, g.description FROM result_group g
		 JOIN link_results_groups l ON l.group_id = g.id
		 WHERE l.result_id = $1
		 ORDER BY g.name, g.description NULLS FIRST`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var g domain.GroupRef
		if err := rows.Scan(&g.Name, &g.Description); err != nil {
			return nil, err
		}
		res.Groups = append(res.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &res, nil
}
