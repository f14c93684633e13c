package processing

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

// PostgresStore persists processing records in the processing_records
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

const processingColumns = `id, application_id, police_verification_status,
	police_station, police_remarks,
	reference1_name, reference1_aadhaar, reference1_verified,
	reference2_name, reference2_aadhaar, reference2_verified,
	processed_by, processed_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, rec *lifecycle.Processing) error {
	query := `
		INSERT INTO processing_records (` + processingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ID), uuid.UUID(rec.ApplicationID),
		string(rec.PoliceStatus), rec.PoliceStation, rec.PoliceRemarks,
		rec.Reference1.Name, rec.Reference1.Aadhaar, rec.Reference1.Verified,
		rec.Reference2.Name, rec.Reference2.Aadhaar, rec.Reference2.Verified,
		nullableUser(rec.ProcessedBy), rec.ProcessedAt, rec.CreatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("processing record for application %s: %w", rec.ApplicationID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert processing record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByApplication(ctx context.Context, appID id.ApplicationID) (*lifecycle.Processing, error) {
	query := `SELECT ` + processingColumns + ` FROM processing_records WHERE application_id = $1`
	rec, err := scanProcessing(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("processing record for application %s: %w", appID, sentinel.ErrNotFound)
	}
	return rec, err
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*lifecycle.Processing, error) {
	query := `SELECT ` + processingColumns + ` FROM processing_records
		WHERE NOT (police_verification_status = 'clear' AND reference1_verified AND reference2_verified)
		ORDER BY created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending processing records: %w", err)
	}
	defer rows.Close()

	var out []*lifecycle.Processing
	for rows.Next() {
		rec, err := scanProcessing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *lifecycle.Processing) error {
	query := `
		UPDATE processing_records SET
			police_verification_status = $2, police_station = $3, police_remarks = $4,
			reference1_name = $5, reference1_aadhaar = $6, reference1_verified = $7,
			reference2_name = $8, reference2_aadhaar = $9, reference2_verified = $10,
			processed_by = $11, processed_at = $12
		WHERE application_id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ApplicationID),
		string(rec.PoliceStatus), rec.PoliceStation, rec.PoliceRemarks,
		rec.Reference1.Name, rec.Reference1.Aadhaar, rec.Reference1.Verified,
		rec.Reference2.Name, rec.Reference2.Aadhaar, rec.Reference2.Verified,
		nullableUser(rec.ProcessedBy), rec.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("update processing record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update processing record rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("processing record for application %s: %w", rec.ApplicationID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.ApplicationID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM processing_records WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete processing record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullableUser(userID id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: !userID.IsNil()}
}

func scanProcessing(r rowScanner) (*lifecycle.Processing, error) {
	var (
		rec         lifecycle.Processing
		recID       uuid.UUID
		appID       uuid.UUID
		status      string
		processedBy uuid.NullUUID
		processedAt sql.NullTime
	)
	err := r.Scan(&recID, &appID, &status,
		&rec.PoliceStation, &rec.PoliceRemarks,
		&rec.Reference1.Name, &rec.Reference1.Aadhaar, &rec.Reference1.Verified,
		&rec.Reference2.Name, &rec.Reference2.Aadhaar, &rec.Reference2.Verified,
		&processedBy, &processedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID = id.ProcessingID(recID)
	rec.ApplicationID = id.ApplicationID(appID)
	rec.PoliceStatus = lifecycle.PoliceStatus(status)
	if processedBy.Valid {
		rec.ProcessedBy = id.UserID(processedBy.UUID)
	}
	if processedAt.Valid {
		t := processedAt.Time
		rec.ProcessedAt = &t
	}
	return &rec, nil
}
