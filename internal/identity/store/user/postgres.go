package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"passtrack/internal/identity"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/pgerr"
	"passtrack/pkg/platform/sentinel"
	txcontext "passtrack/pkg/platform/tx"
)

// PostgresStore persists accounts in the users table. Mutations join the
// ambient transaction when one is present in the context.
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

const userColumns = `id, username, email, password_hash, full_name, phone, role, status, last_login, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *identity.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, full_name, phone, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Username, u.Email, u.PasswordHash, u.FullName, u.Phone,
		string(u.Role), string(u.Status), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("username or email taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, userID id.UserID) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`
	return s.scanUser(s.execer(ctx).QueryRowContext(ctx, query, username))
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	var args []any
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		u, err := s.scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *identity.User) error {
	query := `
		UPDATE users
		SET email = $2, full_name = $3, phone = $4, role = $5, status = $6,
		    last_login = $7, updated_at = $8
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Email, u.FullName, u.Phone,
		string(u.Role), string(u.Status), u.LastLogin, u.UpdatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("email taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountByRole(ctx context.Context) (map[identity.Role]int, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[identity.Role]int)
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		counts[identity.Role(role)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanUser(row *sql.Row) (*identity.User, error) {
	u, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
	}
	return u, err
}

func (s *PostgresStore) scanUserRows(rows *sql.Rows) (*identity.User, error) {
	return scan(rows)
}

func scan(r rowScanner) (*identity.User, error) {
	var (
		u       identity.User
		userID  uuid.UUID
		role    string
		status  string
		lastLog sql.NullTime
	)
	err := r.Scan(&userID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone,
		&role, &status, &lastLog, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	u.Role = identity.Role(role)
	u.Status = identity.Status(status)
	if lastLog.Valid {
		t := lastLog.Time
		u.LastLogin = &t
	}
	return &u, nil
}
