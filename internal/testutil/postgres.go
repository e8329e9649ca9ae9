// Package testutil provides shared testing utilities for the lectern
// project: a pgvector-enabled PostgreSQL test container, deterministic
// mock embedders, and a scripted Anthropic message mock.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lectern/lectern/db"
)

// TestDBContainer wraps a PostgreSQL test container with a ready connection
// pool. The schema comes from the embedded migrations, so test databases
// always match production DDL.
type TestDBContainer struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a pgvector-enabled PostgreSQL container, runs
// migrations, and returns a pooled connection. The cleanup function
// terminates the container.
func SetupTestDB(t *testing.T) (*TestDBContainer, func()) {
	t.Helper()

	container, cleanup, err := SetupTestDBForMain()
	if err != nil {
		t.Fatalf("starting test database: %v", err)
	}
	return container, cleanup
}

// SetupTestDBForMain is the TestMain variant of SetupTestDB: it reports
// failures as errors instead of needing a *testing.T, so a package can share
// one container across all of its integration tests.
func SetupTestDBForMain() (*TestDBContainer, func(), error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("lectern_test"),
		postgres.WithUsername("lectern_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("starting PostgreSQL container: %w", err)
	}

	terminate := func() {
		_ = pgContainer.Terminate(context.Background())
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("reading connection string: %w", err)
	}

	if err := db.Migrate(connStr, DiscardLogger()); err != nil {
		terminate()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		terminate()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	container := &TestDBContainer{
		Container: pgContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
	cleanup := func() {
		pool.Close()
		terminate()
	}
	return container, cleanup, nil
}

// CleanTables truncates all course data for test isolation.
func CleanTables(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()
	if _, err := pool.Exec(context.Background(), `TRUNCATE courses, chunks RESTART IDENTITY`); err != nil {
		tb.Fatalf("truncating tables: %v", err)
	}
}
