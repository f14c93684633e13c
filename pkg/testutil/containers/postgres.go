//go:build integration

// Package containers manages shared test containers for integration tests.
// Containers are started once per test binary and reused across suites.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	manager     *Manager
	managerOnce sync.Once
)

// Manager hands out shared containers, starting each at most once.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
}

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// PostgresContainer wraps a running postgres instance with an open pool
// and the application schema applied.
type PostgresContainer struct {
	container *tcpostgres.PostgresContainer
	DB        *sql.DB
	DSN       string
}

// GetPostgres returns the shared postgres container, starting it on first use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.postgres != nil {
		return m.postgres
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("passtrack_test"),
		tcpostgres.WithUsername("passtrack"),
		tcpostgres.WithPassword("passtrack"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres pool: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	m.postgres = &PostgresContainer{container: container, DB: db, DSN: dsn}
	return m.postgres
}

// TruncateTables clears the given tables. Pass them in dependency order;
// CASCADE handles foreign keys either way.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username VARCHAR(50) UNIQUE NOT NULL,
	email VARCHAR(100) UNIQUE NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	full_name VARCHAR(100) NOT NULL,
	phone VARCHAR(15) NOT NULL DEFAULT '',
	role VARCHAR(20) NOT NULL DEFAULT 'user',
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	last_login TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS applications (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	applicant_type VARCHAR(20) NOT NULL DEFAULT '',
	full_name VARCHAR(100) NOT NULL,
	date_of_birth DATE NOT NULL,
	gender VARCHAR(10) NOT NULL DEFAULT '',
	email VARCHAR(100) NOT NULL,
	phone VARCHAR(15) NOT NULL,
	address TEXT NOT NULL,
	city VARCHAR(50) NOT NULL DEFAULT '',
	state VARCHAR(50) NOT NULL DEFAULT '',
	pincode VARCHAR(10) NOT NULL DEFAULT '',
	priority VARCHAR(20) NOT NULL DEFAULT 'normal',
	status VARCHAR(20) NOT NULL DEFAULT 'draft',
	current_stage VARCHAR(30) NOT NULL DEFAULT 'application',
	remarks TEXT NOT NULL DEFAULT '',
	approved_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_applications_user_id ON applications(user_id);
CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status);
CREATE INDEX IF NOT EXISTS idx_applications_stage ON applications(current_stage);

CREATE TABLE IF NOT EXISTS token_records (
	id UUID PRIMARY KEY,
	application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	token_number VARCHAR(50) UNIQUE NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	assigned_by UUID REFERENCES users(id),
	valid_until TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_token_records_application_id ON token_records(application_id);

CREATE TABLE IF NOT EXISTS photo_sign_validations (
	id UUID PRIMARY KEY,
	application_id UUID UNIQUE NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	photo_path VARCHAR(255) NOT NULL DEFAULT '',
	signature_path VARCHAR(255) NOT NULL DEFAULT '',
	photo_approved BOOLEAN NOT NULL DEFAULT FALSE,
	signature_approved BOOLEAN NOT NULL DEFAULT FALSE,
	photo_remarks TEXT NOT NULL DEFAULT '',
	signature_remarks TEXT NOT NULL DEFAULT '',
	validated_by UUID REFERENCES users(id),
	validated_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verification_records (
	id UUID PRIMARY KEY,
	application_id UUID UNIQUE NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	aadhaar_verified BOOLEAN NOT NULL DEFAULT FALSE,
	pan_verified BOOLEAN NOT NULL DEFAULT FALSE,
	dl_verified BOOLEAN NOT NULL DEFAULT FALSE,
	voter_id_verified BOOLEAN NOT NULL DEFAULT FALSE,
	cctns_verified BOOLEAN NOT NULL DEFAULT FALSE,
	verification_status VARCHAR(20) NOT NULL DEFAULT 'pending',
	remarks TEXT NOT NULL DEFAULT '',
	verified_by UUID REFERENCES users(id),
	verified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS processing_records (
	id UUID PRIMARY KEY,
	application_id UUID UNIQUE NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	police_verification_status VARCHAR(20) NOT NULL DEFAULT 'pending',
	police_station VARCHAR(100) NOT NULL DEFAULT '',
	police_remarks TEXT NOT NULL DEFAULT '',
	reference1_name VARCHAR(100) NOT NULL DEFAULT '',
	reference1_aadhaar VARCHAR(20) NOT NULL DEFAULT '',
	reference1_verified BOOLEAN NOT NULL DEFAULT FALSE,
	reference2_name VARCHAR(100) NOT NULL DEFAULT '',
	reference2_aadhaar VARCHAR(20) NOT NULL DEFAULT '',
	reference2_verified BOOLEAN NOT NULL DEFAULT FALSE,
	processed_by UUID REFERENCES users(id),
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS approval_logs (
	id UUID PRIMARY KEY,
	application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	decision VARCHAR(20) NOT NULL,
	approved_by UUID REFERENCES users(id),
	comments TEXT NOT NULL DEFAULT '',
	passport_number VARCHAR(50) UNIQUE,
	issue_date DATE,
	expiry_date DATE,
	decision_date TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_approval_logs_application_id ON approval_logs(application_id);

CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	actor_id UUID NOT NULL,
	action VARCHAR(50) NOT NULL,
	entity VARCHAR(50) NOT NULL,
	record_id VARCHAR(64) NOT NULL,
	before_state JSONB,
	after_state JSONB,
	origin_ip VARCHAR(45) NOT NULL DEFAULT '',
	origin_user_agent TEXT NOT NULL DEFAULT '',
	origin_client VARCHAR(120) NOT NULL DEFAULT '',
	request_id VARCHAR(64) NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audit_events_actor_id ON audit_events(actor_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);
`
