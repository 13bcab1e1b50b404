package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/toothdoctor-api/internal/catalog"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/internal/scheduling"
)

// PostgresTarget upserts the fixture so the seed command can be re-run.
type PostgresTarget struct {
	db           scheduling.PgxPool
	appointments *scheduling.PostgresStore
}

func NewPostgresTarget(db scheduling.PgxPool) *PostgresTarget {
	return &PostgresTarget{db: db, appointments: scheduling.NewPostgresStore(db)}
}

func (p *PostgresTarget) EnsureUser(ctx context.Context, person Person, role identity.Role) (string, error) {
	var id string
	err := p.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text
	`, uuid.NewString(), person.Email, person.Name, string(role)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}

func (p *PostgresTarget) EnsurePatient(ctx context.Context, userID string) (string, error) {
	var id string
	err := p.db.QueryRow(ctx, `
		INSERT INTO patients (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id::text
	`, uuid.NewString(), userID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert patient: %w", err)
	}
	return id, nil
}

func (p *PostgresTarget) EnsureDoctor(ctx context.Context, userID, specialty string, hours []catalog.Availability) (string, error) {
	var id string
	err := p.db.QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, specialty, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (user_id) DO UPDATE SET specialty = EXCLUDED.specialty
		RETURNING id::text
	`, uuid.NewString(), userID, specialty, time.Now().UTC()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert doctor: %w", err)
	}

	for _, h := range hours {
		if _, err := p.db.Exec(ctx, `
			INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time, is_available)
			SELECT $1::uuid, $2::uuid, $3::int, $4::text, $5::text, $6::boolean
			WHERE NOT EXISTS (
				SELECT 1 FROM doctor_availability WHERE doctor_id = $2::uuid AND day_of_week = $3::int
			)
		`, uuid.NewString(), id, h.DayOfWeek, h.StartTime, h.EndTime, h.IsAvailable); err != nil {
			return "", fmt.Errorf("insert availability: %w", err)
		}
	}
	return id, nil
}

func (p *PostgresTarget) EnsureService(ctx context.Context, svc catalog.DentalService) (string, error) {
	var id string
	err := p.db.QueryRow(ctx, `SELECT id::text FROM dental_services WHERE name = $1 LIMIT 1`, svc.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("select service: %w", err)
	}

	id = uuid.NewString()
	if _, err := p.db.Exec(ctx, `
		INSERT INTO dental_services (id, name, description, price_cents, duration_minutes, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, svc.Name, svc.Description, svc.PriceCents, svc.DurationMinutes, svc.IsActive, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("insert service: %w", err)
	}
	return id, nil
}

func (p *PostgresTarget) Appointments() scheduling.Store {
	return p.appointments
}
