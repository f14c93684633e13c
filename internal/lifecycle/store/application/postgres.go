package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
	txcontext "passtrack/pkg/platform/tx"
)

// PostgresStore persists applications. GetForUpdate issues SELECT ... FOR
// UPDATE so the row stays locked for the rest of the ambient transaction;
// that lock is what serializes concurrent transitions on one application.
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

const appColumns = `id, user_id, applicant_type, full_name, date_of_birth, gender, email, phone,
	address, city, state, pincode, priority, status, current_stage, remarks, approved_at,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, app *lifecycle.Application) error {
	query := `
		INSERT INTO applications (` + appColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID), uuid.UUID(app.UserID),
		app.Applicant.Type, app.Applicant.FullName, app.Applicant.DateOfBirth, app.Applicant.Gender,
		app.Applicant.Email, app.Applicant.Phone, app.Applicant.Address,
		app.Applicant.City, app.Applicant.State, app.Applicant.Pincode,
		string(app.Priority), string(app.Status), string(app.CurrentStage),
		app.Remarks, app.ApprovedAt, app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, appID id.ApplicationID) (*lifecycle.Application, error) {
	query := `SELECT ` + appColumns + ` FROM applications WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
}

func (s *PostgresStore) GetForUpdate(ctx context.Context, appID id.ApplicationID) (*lifecycle.Application, error) {
	query := `SELECT ` + appColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*lifecycle.Application, error) {
	query := `SELECT ` + appColumns + ` FROM applications WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.UserID.IsNil() {
		query += " AND user_id = " + arg(uuid.UUID(filter.UserID))
	}
	if filter.Status != "" {
		query += " AND status = " + arg(string(filter.Status))
	}
	if filter.Stage != "" {
		query += " AND current_stage = " + arg(string(filter.Stage))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []*lifecycle.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}

func (s *PostgresStore) Update(ctx context.Context, app *lifecycle.Application) error {
	query := `
		UPDATE applications
		SET priority = $2, status = $3, current_stage = $4, remarks = $5,
		    approved_at = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID), string(app.Priority), string(app.Status), string(app.CurrentStage),
		app.Remarks, app.ApprovedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("application %s: %w", app.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, appID id.ApplicationID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete application rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("application %s: %w", appID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
			COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
			COUNT(*) FILTER (WHERE status = 'on_hold') AS on_hold,
			COUNT(*) FILTER (WHERE created_at >= $1) AS today
		FROM applications
	`
	var stats Stats
	today := now.Truncate(24 * time.Hour)
	err := s.execer(ctx).QueryRowContext(ctx, query, today).Scan(
		&stats.Total, &stats.Approved, &stats.Rejected, &stats.InProgress, &stats.OnHold, &stats.Today,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("application stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row *sql.Row) (*lifecycle.Application, error) {
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application: %w", sentinel.ErrNotFound)
	}
	return app, err
}

func scanApplication(r rowScanner) (*lifecycle.Application, error) {
	var (
		app        lifecycle.Application
		appID      uuid.UUID
		userID     uuid.UUID
		priority   string
		status     string
		stage      string
		approvedAt sql.NullTime
	)
	err := r.Scan(
		&appID, &userID,
		&app.Applicant.Type, &app.Applicant.FullName, &app.Applicant.DateOfBirth, &app.Applicant.Gender,
		&app.Applicant.Email, &app.Applicant.Phone, &app.Applicant.Address,
		&app.Applicant.City, &app.Applicant.State, &app.Applicant.Pincode,
		&priority, &status, &stage, &app.Remarks, &approvedAt,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.ID = id.ApplicationID(appID)
	app.UserID = id.UserID(userID)
	app.Priority = lifecycle.Priority(priority)
	app.Status = lifecycle.Status(status)
	app.CurrentStage = lifecycle.Stage(stage)
	if approvedAt.Valid {
		t := approvedAt.Time
		app.ApprovedAt = &t
	}
	return &app, nil
}
