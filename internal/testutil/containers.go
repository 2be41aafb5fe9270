// Package testutil starts throwaway Postgres and RustFS containers for
// integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "pgvector/pgvector:0.8.1-pg18"
	rustfsImage   = "rustfs/rustfs:latest"

	dbName = "corpora"
	dbUser = "corpora"
	dbPass = "corpora"

	rustfsCreds = "rustfsadmin"
)

// PostgresContainer wraps a pgvector-enabled Postgres instance.
type PostgresContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// NewPostgresContainer starts Postgres and blocks until it accepts connections.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     dbUser,
			"POSTGRES_PASSWORD": dbPass,
			"POSTGRES_DB":       dbName,
		},
		WaitingFor: wait.ForAll(
			// The entrypoint restarts postgres once during init, so wait
			// for the second ready line.
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres mapped port: %v", err)
	}

	return &PostgresContainer{container: c, host: host, port: mapped.Port()}
}

// ConnectionString returns a pgx-compatible DSN for the running container.
func (p *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, p.host, p.port, dbName)
}

func (p *PostgresContainer) Terminate(ctx context.Context) {
	_ = p.container.Terminate(ctx)
}

// RustFSContainer wraps an S3-compatible RustFS instance.
type RustFSContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// NewRustFSContainer starts RustFS with fixed test credentials.
func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": rustfsCreds,
			"RUSTFS_SECRET_KEY": rustfsCreds,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start rustfs: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("rustfs host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("rustfs mapped port: %v", err)
	}

	return &RustFSContainer{container: c, host: host, port: mapped.Port()}
}

// Endpoint returns the http URL of the mapped S3 port.
func (r *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", r.host, r.port)
}

func (r *RustFSContainer) Terminate(ctx context.Context) {
	_ = r.container.Terminate(ctx)
}

// NewTestPool connects to the container, retrying while Postgres finishes
// startup, then applies every migration under migrationsDir.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	var pool *pgxpool.Pool
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.New(ctx, pc.ConnectionString())
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("connect to test postgres: %v", err)
	}

	RunMigrations(ctx, t, pool, migrationsDir)
	return pool
}

// RunMigrations applies all *.up.sql files in lexical order. Tests exec the
// raw SQL directly rather than going through golang-migrate, which keeps the
// schema_migrations bookkeeping out of test databases.
func RunMigrations(ctx context.Context, t *testing.T, pool *pgxpool.Pool, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}

	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	for _, name := range ups {
		sql, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read migration %s: %v", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			t.Fatalf("apply migration %s: %v", name, err)
		}
	}
}
