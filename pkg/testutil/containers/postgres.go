//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema creates every table the stores persist to. Kept here so integration
// tests run against the same DDL production migrations apply.
const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id           UUID PRIMARY KEY,
	number       TEXT NOT NULL,
	machine_id   UUID NOT NULL,
	department   TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	reported_by  UUID NOT NULL,
	assigned_to  UUID,
	accepted_at  TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id          UUID PRIMARY KEY,
	target_user UUID,
	module      TEXT,
	type        TEXT NOT NULL,
	title       TEXT NOT NULL,
	message     TEXT NOT NULL,
	link        TEXT,
	created_at  TIMESTAMPTZ NOT NULL,
	read        BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_notifications_target_user ON notifications (target_user);
CREATE INDEX IF NOT EXISTS idx_notifications_module ON notifications (module) WHERE target_user IS NULL;

CREATE TABLE IF NOT EXISTS derived_reports (
	id               UUID PRIMARY KEY,
	source_ticket_id UUID NOT NULL,
	machine_id       UUID NOT NULL,
	description      TEXT NOT NULL,
	status           TEXT NOT NULL,
	started_at       TIMESTAMPTZ,
	finished_at      TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_derived_reports_source_ticket ON derived_reports (source_ticket_id);
`

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container, applies the schema, and
// returns an open connection. The container is terminated when the test
// finishes.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("maintrack_test"),
		tcpostgres.WithUsername("maintrack"),
		tcpostgres.WithPassword("maintrack"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{Container: container, DB: db}
}
