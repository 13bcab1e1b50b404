// Package audit records immutable before/after snapshots of every mutation of a
// tracked clinic entity.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Action is the kind of mutation an entry describes.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Tracked entity names.
const (
	EntityAppointment   = "Appointment"
	EntityDentalService = "DentalService"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Action    Action          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId"`
	Changes   json.RawMessage `json:"changes"`
	CreatedAt time.Time       `json:"timestamp"`
}

// Changes is the snapshot payload stored with an entry.
type Changes struct {
	Before  any `json:"before,omitempty"`
	After   any `json:"after,omitempty"`
	Deleted any `json:"deleted,omitempty"`
}

// Created builds a CREATE entry holding the new state.
func Created(actorID, entity, entityID string, after any) (Entry, error) {
	return newEntry(actorID, ActionCreate, entity, entityID, Changes{After: after})
}

// Updated builds an UPDATE entry holding the prior and new state.
func Updated(actorID, entity, entityID string, before, after any) (Entry, error) {
	return newEntry(actorID, ActionUpdate, entity, entityID, Changes{Before: before, After: after})
}

// Deleted builds a DELETE entry holding the removed state.
func Deleted(actorID, entity, entityID string, deleted any) (Entry, error) {
	return newEntry(actorID, ActionDelete, entity, entityID, Changes{Deleted: deleted})
}

func newEntry(actorID string, action Action, entity, entityID string, changes Changes) (Entry, error) {
	data, err := json.Marshal(changes)
	if err != nil {
		return Entry{}, fmt.Errorf("audit: marshal changes: %w", err)
	}
	return Entry{
		ID:        uuid.NewString(),
		UserID:    actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Changes:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Execer is satisfied by pgx.Tx and pgxpool.Pool, so entries can join the
// caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Recorder appends and reads audit entries.
type Recorder struct {
	db querier
}

// NewRecorder creates a recorder whose reads go through db.
func NewRecorder(db querier) *Recorder {
	return &Recorder{db: db}
}

const insertEntry = `
	INSERT INTO audit_logs (id, user_id, action, entity, entity_id, changes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Record appends e using exec, normally the transaction that performed the mutation.
func (r *Recorder) Record(ctx context.Context, exec Execer, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := exec.Exec(ctx, insertEntry,
		e.ID, e.UserID, e.Action, e.Entity, e.EntityID, []byte(e.Changes), e.CreatedAt,
	); err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// Filter narrows List results.
type Filter struct {
	Entity   string
	EntityID string
	UserID   string
	Limit    int
}

// EffectiveLimit clamps Limit to 1..200, defaulting to 50.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > 200 {
		return 50
	}
	return f.Limit
}

// Matches reports whether e satisfies the filter's equality conditions.
func (f Filter) Matches(e Entry) bool {
	if f.Entity != "" && e.Entity != f.Entity {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	return true
}

// List returns the newest entries first.
func (r *Recorder) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
		SELECT id::text, user_id, action, entity, entity_id, changes, created_at
		FROM audit_logs
		WHERE 1 = 1
	`
	var args []any
	argIdx := 1
	if f.Entity != "" {
		query += fmt.Sprintf(" AND entity = $%d", argIdx)
		args = append(args, f.Entity)
		argIdx++
	}
	if f.EntityID != "" {
		query += fmt.Sprintf(" AND entity_id = $%d", argIdx)
		args = append(args, f.EntityID)
		argIdx++
	}
	if f.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, f.UserID)
		argIdx++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIdx)
	args = append(args, f.EffectiveLimit())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			changes []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Entity, &e.EntityID, &changes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Changes = append(json.RawMessage(nil), changes...)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
