// Package postgres persists audit entries in the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	id "passtrack/pkg/domain"
	"passtrack/pkg/platform/audit"
	txcontext "passtrack/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL. Appends join the ambient
// transaction when one is present in the context, so a lifecycle transition
// and its audit entry commit or roll back together.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one immutable audit entry. The table has no UPDATE or
// DELETE path; the insert is the whole contract.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	before, err := marshalPayload(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal before payload: %w", err)
	}
	after, err := marshalPayload(entry.After)
	if err != nil {
		return fmt.Errorf("marshal after payload: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			id, actor_id, action, entity, record_id,
			before_state, after_state,
			origin_ip, origin_user_agent, origin_client,
			request_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.ActorID),
		string(entry.Action),
		entry.Entity,
		entry.RecordID,
		before,
		after,
		entry.Origin.IP,
		entry.Origin.UserAgent,
		entry.Origin.Client,
		entry.RequestID,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List returns matching entries newest-first.
func (s *Store) List(ctx context.Context, filter audit.Filter) ([]*audit.Entry, error) {
	filter = filter.Normalize()

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.ActorID.IsNil() {
		conds = append(conds, "actor_id = "+arg(uuid.UUID(filter.ActorID)))
	}
	if filter.Action != "" {
		conds = append(conds, "action = "+arg(string(filter.Action)))
	}
	if filter.Entity != "" {
		conds = append(conds, "entity = "+arg(filter.Entity))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.To))
	}

	query := `
		SELECT id, actor_id, action, entity, record_id,
		       before_state, after_state,
		       origin_ip, origin_user_agent, origin_client,
		       request_id, created_at
		FROM audit_events
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (*audit.Entry, error) {
	var (
		entry         audit.Entry
		entryID       uuid.UUID
		actorID       uuid.UUID
		action        string
		before, after []byte
	)
	err := rows.Scan(
		&entryID,
		&actorID,
		&action,
		&entry.Entity,
		&entry.RecordID,
		&before,
		&after,
		&entry.Origin.IP,
		&entry.Origin.UserAgent,
		&entry.Origin.Client,
		&entry.RequestID,
		&entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit event: %w", err)
	}
	entry.ID = id.AuditEventID(entryID)
	entry.ActorID = id.UserID(actorID)
	entry.Action = audit.Action(action)
	if entry.Before, err = unmarshalPayload(before); err != nil {
		return nil, fmt.Errorf("decode before payload: %w", err)
	}
	if entry.After, err = unmarshalPayload(after); err != nil {
		return nil, fmt.Errorf("decode after payload: %w", err)
	}
	return &entry, nil
}

func marshalPayload(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalPayload(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
