package approval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/pgerr"
	"passtrack/pkg/platform/sentinel"
	txcontext "passtrack/pkg/platform/tx"
)

// PostgresStore persists approval entries in the approval_logs table.
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

const approvalColumns = `id, application_id, decision, approved_by, comments,
	passport_number, issue_date, expiry_date, decision_date`

func (s *PostgresStore) Create(ctx context.Context, entry *lifecycle.Approval) error {
	// passport_number carries a unique index, so non-approved entries
	// store NULL rather than an empty string.
	query := `
		INSERT INTO approval_logs (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID), uuid.UUID(entry.ApplicationID),
		string(entry.Decision), uuid.UUID(entry.ApprovedBy), entry.Comments,
		entry.PassportNumber,
		nullableDate(entry.IssueDate), nullableDate(entry.ExpiryDate),
		entry.DecisionDate,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("passport number %q: %w", entry.PassportNumber, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert approval entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_logs
		WHERE application_id = $1
		ORDER BY decision_date DESC LIMIT 1`
	entry, err := scanApproval(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("approval entry for application %s: %w", appID, sentinel.ErrNotFound)
	}
	return entry, err
}

func (s *PostgresStore) List(ctx context.Context) ([]*lifecycle.Approval, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_logs ORDER BY decision_date DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list approval entries: %w", err)
	}
	defer rows.Close()

	var out []*lifecycle.Approval
	for rows.Next() {
		entry, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval entries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.ApplicationID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM approval_logs WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete approval entries: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullableDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func scanApproval(r rowScanner) (*lifecycle.Approval, error) {
	var (
		entry      lifecycle.Approval
		entryID    uuid.UUID
		appID      uuid.UUID
		decision   string
		approvedBy uuid.NullUUID
		passport   sql.NullString
		issueDate  sql.NullTime
		expiryDate sql.NullTime
	)
	err := r.Scan(&entryID, &appID, &decision, &approvedBy, &entry.Comments,
		&passport, &issueDate, &expiryDate, &entry.DecisionDate)
	if err != nil {
		return nil, err
	}
	entry.ID = id.ApprovalID(entryID)
	entry.ApplicationID = id.ApplicationID(appID)
	entry.Decision = lifecycle.Decision(decision)
	if approvedBy.Valid {
		entry.ApprovedBy = id.UserID(approvedBy.UUID)
	}
	if passport.Valid {
		entry.PassportNumber = passport.String
	}
	if issueDate.Valid {
		entry.IssueDate = issueDate.Time
	}
	if expiryDate.Valid {
		entry.ExpiryDate = expiryDate.Time
	}
	return &entry, nil
}
