package photosign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"passtrack/internal/lifecycle"
	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/sentinel"
	txcontext "passtrack/pkg/platform/tx"
)

// PostgresStore persists photo/signature records in the
// photo_sign_validations table.
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

const photoSignColumns = `id, application_id, photo_path, signature_path,
	photo_approved, signature_approved, photo_remarks, signature_remarks,
	validated_by, validated_at, created_at`

func (s *PostgresStore) Upsert(ctx context.Context, rec *lifecycle.PhotoSign) error {
	// A re-upload with only one of the two files must not blank the other
	// path, hence the NULLIF/COALESCE merge on conflict.
	query := `
		INSERT INTO photo_sign_validations (` + photoSignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (application_id) DO UPDATE SET
			photo_path = COALESCE(NULLIF(EXCLUDED.photo_path, ''), photo_sign_validations.photo_path),
			signature_path = COALESCE(NULLIF(EXCLUDED.signature_path, ''), photo_sign_validations.signature_path)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ID), uuid.UUID(rec.ApplicationID),
		rec.PhotoPath, rec.SignaturePath,
		rec.PhotoApproved, rec.SignatureApproved,
		rec.PhotoRemarks, rec.SignatureRemarks,
		nullableUser(rec.ValidatedBy), rec.ValidatedAt, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert photo/sign record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.PhotoSign, error) {
	query := `SELECT ` + photoSignColumns + ` FROM photo_sign_validations WHERE application_id = $1`
	rec, err := scanPhotoSign(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("photo/sign record for application %s: %w", appID, sentinel.ErrNotFound)
	}
	return rec, err
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*lifecycle.PhotoSign, error) {
	query := `SELECT ` + photoSignColumns + ` FROM photo_sign_validations
		WHERE NOT (photo_approved AND signature_approved)
		ORDER BY created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending photo/sign records: %w", err)
	}
	defer rows.Close()

	var out []*lifecycle.PhotoSign
	for rows.Next() {
		rec, err := scanPhotoSign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo/sign records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *lifecycle.PhotoSign) error {
	query := `
		UPDATE photo_sign_validations SET
			photo_approved = $2, signature_approved = $3,
			photo_remarks = $4, signature_remarks = $5,
			validated_by = $6, validated_at = $7
		WHERE application_id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ApplicationID),
		rec.PhotoApproved, rec.SignatureApproved,
		rec.PhotoRemarks, rec.SignatureRemarks,
		nullableUser(rec.ValidatedBy), rec.ValidatedAt,
	)
	if err != nil {
		return fmt.Errorf("update photo/sign record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update photo/sign record rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("photo/sign record for application %s: %w", rec.ApplicationID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.ApplicationID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM photo_sign_validations WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete photo/sign record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullableUser(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}

func scanPhotoSign(r rowScanner) (*lifecycle.PhotoSign, error) {
	var (
		rec         lifecycle.PhotoSign
		recID       uuid.UUID
		appID       uuid.UUID
		validatedBy uuid.NullUUID
		validatedAt sql.NullTime
	)
	err := r.Scan(&recID, &appID, &rec.PhotoPath, &rec.SignaturePath,
		&rec.PhotoApproved, &rec.SignatureApproved,
		&rec.PhotoRemarks, &rec.SignatureRemarks,
		&validatedBy, &validatedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID = id.PhotoSignID(recID)
	rec.ApplicationID = id.ApplicationID(appID)
	if validatedBy.Valid {
		rec.ValidatedBy = id.UserID(validatedBy.UUID)
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		rec.ValidatedAt = &t
	}
	return &rec, nil
}
