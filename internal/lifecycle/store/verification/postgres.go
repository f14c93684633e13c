package verification

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

// PostgresStore persists verification records in the verification_records
// table.
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

const verificationColumns = `id, application_id, aadhaar_verified, pan_verified,
	dl_verified, voter_id_verified, cctns_verified, verification_status,
	remarks, verified_by, verified_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, rec *lifecycle.Verification) error {
	query := `
		INSERT INTO verification_records (` + verificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ID), uuid.UUID(rec.ApplicationID),
		rec.AadhaarVerified, rec.PANVerified, rec.DLVerified,
		rec.VoterIDVerified, rec.CCTNSVerified,
		string(rec.Status), rec.Remarks,
		nullableUser(rec.VerifiedBy), rec.VerifiedAt, rec.CreatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("verification record for application %s: %w", rec.ApplicationID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert verification record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Verification, error) {
	query := `SELECT ` + verificationColumns + ` FROM verification_records WHERE application_id = $1`
	rec, err := scanVerification(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("verification record for application %s: %w", appID, sentinel.ErrNotFound)
	}
	return rec, err
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*lifecycle.Verification, error) {
	query := `SELECT ` + verificationColumns + ` FROM verification_records
		WHERE verification_status <> 'completed'
		ORDER BY created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending verification records: %w", err)
	}
	defer rows.Close()

	var out []*lifecycle.Verification
	for rows.Next() {
		rec, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *lifecycle.Verification) error {
	query := `
		UPDATE verification_records SET
			aadhaar_verified = $2, pan_verified = $3, dl_verified = $4,
			voter_id_verified = $5, cctns_verified = $6,
			verification_status = $7, remarks = $8,
			verified_by = $9, verified_at = $10
		WHERE application_id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ApplicationID),
		rec.AadhaarVerified, rec.PANVerified, rec.DLVerified,
		rec.VoterIDVerified, rec.CCTNSVerified,
		string(rec.Status), rec.Remarks,
		nullableUser(rec.VerifiedBy), rec.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("update verification record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update verification record rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("verification record for application %s: %w", rec.ApplicationID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.ApplicationID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM verification_records WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete verification record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullableUser(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}

func scanVerification(r rowScanner) (*lifecycle.Verification, error) {
	var (
		rec        lifecycle.Verification
		recID      uuid.UUID
		appID      uuid.UUID
		status     string
		verifiedBy uuid.NullUUID
		verifiedAt sql.NullTime
	)
	err := r.Scan(&recID, &appID,
		&rec.AadhaarVerified, &rec.PANVerified, &rec.DLVerified,
		&rec.VoterIDVerified, &rec.CCTNSVerified,
		&status, &rec.Remarks,
		&verifiedBy, &verifiedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID = id.VerificationID(recID)
	rec.ApplicationID = id.ApplicationID(appID)
	rec.Status = lifecycle.VerificationStatus(status)
	if verifiedBy.Valid {
		rec.VerifiedBy = id.UserID(verifiedBy.UUID)
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rec.VerifiedAt = &t
	}
	return &rec, nil
}
