package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/toothdoctor-api/internal/audit"
)

// PgxPool is satisfied by *pgxpool.Pool and pgxmock pools.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads the catalog from Postgres.
type PostgresStore struct {
	pool  PgxPool
	audit *audit.Recorder
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresStore{pool: pool, audit: audit.NewRecorder(pool)}
}

const selectDoctor = `
	SELECT d.id::text, d.user_id::text, u.name, u.email, d.specialty, d.is_active, d.created_at
	FROM doctors d
	JOIN users u ON u.id = d.user_id
`

func (s *PostgresStore) ActiveDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := s.pool.Query(ctx, selectDoctor+" WHERE d.is_active ORDER BY d.created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("catalog: list doctors: %w", err)
	}
	defer rows.Close()

	doctors := []Doctor{}
	index := map[string]int{}
	var ids []string
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Email, &d.Specialty, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan doctor: %w", err)
		}
		d.Availability = []Availability{}
		index[d.ID] = len(doctors)
		ids = append(ids, d.ID)
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list doctors: %w", err)
	}
	if len(ids) == 0 {
		return doctors, nil
	}

	windows, err := s.availability(ctx, ids)
	if err != nil {
		return nil, err
	}
	for doctorID, ws := range windows {
		if i, ok := index[doctorID]; ok {
			doctors[i].Availability = ws
		}
	}
	return doctors, nil
}

func (s *PostgresStore) Doctor(ctx context.Context, id string) (*Doctor, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var d Doctor
	err := s.pool.QueryRow(ctx, selectDoctor+" WHERE d.id = $1", id).
		Scan(&d.ID, &d.UserID, &d.Name, &d.Email, &d.Specialty, &d.IsActive, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: load doctor: %w", err)
	}
	windows, err := s.availability(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	d.Availability = windows[id]
	if d.Availability == nil {
		d.Availability = []Availability{}
	}
	return &d, nil
}

func (s *PostgresStore) availability(ctx context.Context, doctorIDs []string) (map[string][]Availability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, doctor_id::text, day_of_week, start_time, end_time, is_available
		FROM doctor_availability
		WHERE doctor_id::text = ANY($1)
		ORDER BY day_of_week, start_time
	`, doctorIDs)
	if err != nil {
		return nil, fmt.Errorf("catalog: list availability: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Availability, len(doctorIDs))
	for rows.Next() {
		var (
			a        Availability
			doctorID string
		)
		if err := rows.Scan(&a.ID, &doctorID, &a.DayOfWeek, &a.StartTime, &a.EndTime, &a.IsAvailable); err != nil {
			return nil, fmt.Errorf("catalog: scan availability: %w", err)
		}
		out[doctorID] = append(out[doctorID], a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActiveServices(ctx context.Context) ([]DentalService, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, name, description, price_cents, duration_minutes, is_active, created_at
		FROM dental_services
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()

	services := []DentalService{}
	for rows.Next() {
		var svc DentalService
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.PriceCents, &svc.DurationMinutes, &svc.IsActive, &svc.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list services: %w", err)
	}
	return services, nil
}

func (s *PostgresStore) InsertService(ctx context.Context, svc *DentalService, entry audit.Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO dental_services (id, name, description, price_cents, duration_minutes, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, svc.ID, svc.Name, svc.Description, svc.PriceCents, svc.DurationMinutes, svc.IsActive, svc.CreatedAt); err != nil {
		return fmt.Errorf("catalog: insert service: %w", err)
	}
	if err := s.audit.Record(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}
