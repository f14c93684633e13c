package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/pgerr"
	"passtrack/pkg/platform/sentinel"
	txcontext "passtrack/pkg/platform/tx"
)

// PostgresStore persists tokens in the token_records table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const tokenColumns = `id, application_id, token_number, status, assigned_by, valid_until, created_at`

func (s *PostgresStore) Create(ctx context.Context, t *lifecycle.Token) error {
	query := `
		INSERT INTO token_records (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(t.ID), uuid.UUID(t.ApplicationID), t.Number,
		string(t.Status), uuid.UUID(t.AssignedBy), t.ValidUntil, t.CreatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("token number %q: %w", t.Number, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActiveByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM token_records
		WHERE application_id = $1 AND status = 'active'
		ORDER BY created_at DESC LIMIT 1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
}

func (s *PostgresStore) GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM token_records
		WHERE application_id = $1
		ORDER BY created_at DESC LIMIT 1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
}

func (s *PostgresStore) List(ctx context.Context) ([]*lifecycle.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM token_records ORDER BY created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*lifecycle.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, tokenID id.TokenID, status lifecycle.TokenStatus) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE token_records SET status = $2 WHERE id = $1`,
		uuid.UUID(tokenID), string(status),
	)
	if err != nil {
		return fmt.Errorf("update token status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update token status rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("token %s: %w", tokenID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.ApplicationID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM token_records WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row *sql.Row) (*lifecycle.Token, error) {
	t, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token: %w", sentinel.ErrNotFound)
	}
	return t, err
}

func scanToken(r rowScanner) (*lifecycle.Token, error) {
	var (
		t          lifecycle.Token
		tokenID    uuid.UUID
		appID      uuid.UUID
		assignedBy uuid.UUID
		status     string
	)
	err := r.Scan(&tokenID, &appID, &t.Number, &status, &assignedBy, &t.ValidUntil, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.ID = id.TokenID(tokenID)
	t.ApplicationID = id.ApplicationID(appID)
	t.AssignedBy = id.UserID(assignedBy)
	t.Status = lifecycle.TokenStatus(status)
	return &t, nil
}
