package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/toothdoctor-api/internal/audit"
)

// SlotIndex is the partial unique index that keeps one active appointment per slot.
const SlotIndex = "appointments_active_slot_uniq"

// PgxPool is satisfied by *pgxpool.Pool and pgxmock pools.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments in Postgres.
type PostgresStore struct {
	pool  PgxPool
	audit *audit.Recorder
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &PostgresStore{pool: pool, audit: audit.NewRecorder(pool)}
}

const selectAppointment = `
	SELECT a.id::text, a.patient_id::text, a.doctor_id::text, a.service_id::text, a.user_id::text,
		to_char(a.appointment_date, 'YYYY-MM-DD'), a.start_time, a.end_time, a.status,
		a.reason_for_visit, a.doctor_notes, a.cancel_reason, a.cancelled_at, a.created_at, a.updated_at,
		du.name, du.email, d.specialty,
		pu.name, pu.email,
		s.name, s.price_cents, s.duration_minutes
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
	JOIN patients p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id
	LEFT JOIN dental_services s ON s.id = a.service_id
`

const conflictQuery = `
	SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2::date AND start_time = $3 AND status <> 'CANCELLED'
	)
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a            Appointment
		status       string
		doctor       DoctorRef
		patient      PatientRef
		serviceName  *string
		servicePrice *int64
		serviceMins  *int
	)
	if err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.ServiceID, &a.UserID,
		&a.AppointmentDate, &a.StartTime, &a.EndTime, &status,
		&a.ReasonForVisit, &a.DoctorNotes, &a.CancelReason, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt,
		&doctor.Name, &doctor.Email, &doctor.Specialty,
		&patient.Name, &patient.Email,
		&serviceName, &servicePrice, &serviceMins,
	); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	doctor.ID = a.DoctorID
	patient.ID = a.PatientID
	a.Doctor = &doctor
	a.Patient = &patient
	if a.ServiceID != nil && serviceName != nil {
		a.Service = &ServiceRef{ID: *a.ServiceID, Name: *serviceName}
		if servicePrice != nil {
			a.Service.PriceCents = *servicePrice
		}
		if serviceMins != nil {
			a.Service.DurationMinutes = *serviceMins
		}
	}
	return &a, nil
}

func hasConflict(ctx context.Context, q queryRower, doctorID, date, start string) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, conflictQuery, doctorID, date, start).Scan(&exists); err != nil {
		return false, fmt.Errorf("scheduling: conflict query: %w", err)
	}
	return exists, nil
}

func loadAppointment(ctx context.Context, q queryRower, id, suffix string) (*Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	a, err := scanAppointment(q.QueryRow(ctx, selectAppointment+" WHERE a.id = $1"+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: load appointment: %w", err)
	}
	return a, nil
}

// classify maps constraint violations onto business errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		if pgErr.ConstraintName == SlotIndex {
			return ErrSlotTaken
		}
	case "23503":
		return ErrUnknownReference
	}
	return err
}

func (s *PostgresStore) HasConflict(ctx context.Context, doctorID, appointmentDate, startTime string) (bool, error) {
	return hasConflict(ctx, s.pool, doctorID, appointmentDate, startTime)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Appointment, error) {
	return loadAppointment(ctx, s.pool, id, "")
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	query := selectAppointment + " WHERE 1 = 1"
	var args []any
	argIdx := 1
	if f.PatientID != "" {
		query += fmt.Sprintf(" AND a.patient_id = $%d", argIdx)
		args = append(args, f.PatientID)
		argIdx++
	}
	if f.DoctorID != "" {
		query += fmt.Sprintf(" AND a.doctor_id = $%d", argIdx)
		args = append(args, f.DoctorID)
	}
	query += " ORDER BY a.appointment_date DESC, a.start_time DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list appointments: %w", err)
	}
	defer rows.Close()

	appointments := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		appointments = append(appointments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: list appointments: %w", err)
	}
	return appointments, nil
}

func (s *PostgresStore) BookedStartTimes(ctx context.Context, doctorID, appointmentDate string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT start_time FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2::date AND status <> 'CANCELLED'
		ORDER BY start_time
	`, doctorID, appointmentDate)
	if err != nil {
		return nil, fmt.Errorf("scheduling: booked slots: %w", err)
	}
	defer rows.Close()

	var starts []string
	for rows.Next() {
		var start string
		if err := rows.Scan(&start); err != nil {
			return nil, fmt.Errorf("scheduling: scan slot: %w", err)
		}
		starts = append(starts, start)
	}
	return starts, rows.Err()
}

// InTx runs fn in a transaction and commits when it returns nil.
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx, audit: s.audit}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit: %w", classify(err))
	}
	return nil
}

type pgTx struct {
	tx    pgx.Tx
	audit *audit.Recorder
}

func (t *pgTx) HasConflict(ctx context.Context, doctorID, appointmentDate, startTime string) (bool, error) {
	return hasConflict(ctx, t.tx, doctorID, appointmentDate, startTime)
}

func (t *pgTx) EnsurePatient(ctx context.Context, userID string) (string, bool, error) {
	id := uuid.NewString()
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO patients (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, id, userID)
	if err != nil {
		return "", false, fmt.Errorf("scheduling: create patient: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return id, true, nil
	}
	if err := t.tx.QueryRow(ctx, `SELECT id::text FROM patients WHERE user_id = $1`, userID).Scan(&id); err != nil {
		return "", false, fmt.Errorf("scheduling: load patient: %w", err)
	}
	return id, false, nil
}

func (t *pgTx) Insert(ctx context.Context, a *Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, service_id, user_id,
			appointment_date, start_time, end_time, status, reason_for_visit,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.PatientID, a.DoctorID, a.ServiceID, a.UserID,
		a.AppointmentDate, a.StartTime, a.EndTime, string(a.Status), a.ReasonForVisit,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if c := classify(err); c != err {
			return c
		}
		return fmt.Errorf("scheduling: insert appointment: %w", err)
	}
	return nil
}

func (t *pgTx) Lock(ctx context.Context, id string) (*Appointment, error) {
	return loadAppointment(ctx, t.tx, id, " FOR UPDATE OF a")
}

func (t *pgTx) Load(ctx context.Context, id string) (*Appointment, error) {
	return loadAppointment(ctx, t.tx, id, "")
}

func (t *pgTx) Update(ctx context.Context, a *Appointment) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $2::date, start_time = $3, end_time = $4, status = $5,
			doctor_notes = $6, cancel_reason = $7, cancelled_at = $8, updated_at = $9
		WHERE id = $1
	`, a.ID, a.AppointmentDate, a.StartTime, a.EndTime, string(a.Status),
		a.DoctorNotes, a.CancelReason, a.CancelledAt, a.UpdatedAt)
	if err != nil {
		if c := classify(err); c != err {
			return c
		}
		return fmt.Errorf("scheduling: update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) Delete(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("scheduling: delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) RecordAudit(ctx context.Context, e audit.Entry) error {
	return t.audit.Record(ctx, t.tx, e)
}
