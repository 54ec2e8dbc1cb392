package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// postgresImage must be 15 or newer: the schema uses UNIQUE NULLS NOT DISTINCT.
const postgresImage = "postgres:17-alpine"

// PostgresContainer is a throwaway Postgres holding the rerankd schema.
type PostgresContainer struct {
	*postgres.PostgresContainer
	dsn string
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("rerankd"),
		postgres.WithUsername("rerankd"),
		postgres.WithPassword("rerankd"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		t.Fatalf("postgres dsn: %v", err)
	}
	return &PostgresContainer{PostgresContainer: ctr, dsn: dsn}
}

func (pc *PostgresContainer) ConnectionString() string {
	return pc.dsn
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.PostgresContainer)
}

// RustFSContainer is an S3-compatible object store for the export sink.
type RustFSContainer struct {
	testcontainers.Container
	endpoint string
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	ctr, err := testcontainers.Run(ctx, "rustfs/rustfs:latest",
		testcontainers.WithExposedPorts("9000/tcp"),
		testcontainers.WithEnv(map[string]string{
			"RUSTFS_ACCESS_KEY": "rustfsadmin",
			"RUSTFS_SECRET_KEY": "rustfsadmin",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("9000/tcp").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start rustfs: %v", err)
	}

	endpoint, err := ctr.PortEndpoint(ctx, "9000/tcp", "http")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		t.Fatalf("rustfs endpoint: %v", err)
	}
	return &RustFSContainer{Container: ctr, endpoint: endpoint}
}

// Endpoint is the base URL to hand to the S3 client.
func (rc *RustFSContainer) Endpoint() string {
	return rc.endpoint
}

func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// NewTestPool connects to pc and migrates it to the latest schema version
// found in migrationsDir.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	if err := MigrateUp(pc.ConnectionString(), migrationsDir); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, pc.ConnectionString())
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping: %v", err)
	}
	return pool
}

// MigrateUp applies every pending migration in migrationsDir with the same
// driver the migrate command uses.
func MigrateUp(dsn, migrationsDir string) error {
	dir, err := filepath.Abs(migrationsDir)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(dir), "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// TruncateAll empties every rerankd table and resets the id sequences.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `TRUNCATE TABLE
		search_target_feedback, search_reranking_feedback,
		link_results_groups, link_results_tags,
		result_group, result_tag, result, search
		RESTART IDENTITY CASCADE`)
	return err
}
