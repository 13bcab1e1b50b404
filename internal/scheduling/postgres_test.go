package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/toothdoctor-api/internal/audit"
)

const testApptID = "0c7e4f7a-9a4e-4b55-8d0e-6f1f2b9f6a11"

var appointmentColumns = []string{
	"id", "patient_id", "doctor_id", "service_id", "user_id",
	"appointment_date", "start_time", "end_time", "status",
	"reason_for_visit", "doctor_notes", "cancel_reason", "cancelled_at", "created_at", "updated_at",
	"doctor_name", "doctor_email", "specialty",
	"patient_name", "patient_email",
	"service_name", "price_cents", "duration_minutes",
}

func appointmentRows(id, status string) *pgxmock.Rows {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(appointmentColumns).AddRow(
		id, "pat-1", testDoctorID, nil, "user-1",
		"2025-06-10", "10:00", "10:30", status,
		nil, nil, nil, nil, now, now,
		"Dr. Sarah Johnson", "sarah@toothdoctor.test", "General Dentistry",
		"Pat Patient", "pat@toothdoctor.test",
		nil, nil, nil,
	)
}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresStore(mock)
}

func TestPostgresHasConflict(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(testDoctorID, "2025-06-10", "10:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := store.HasConflict(context.Background(), testDoctorID, "2025-06-10", "10:00")
	require.NoError(t, err)
	assert.True(t, taken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("FROM appointments a").
		WithArgs(testApptID).
		WillReturnRows(appointmentRows(testApptID, "CONFIRMED"))

	appt, err := store.Get(context.Background(), testApptID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, appt.Status)
	require.NotNil(t, appt.Doctor)
	assert.Equal(t, "Dr. Sarah Johnson", appt.Doctor.Name)
	assert.Equal(t, testDoctorID, appt.Doctor.ID)
	require.NotNil(t, appt.Patient)
	assert.Equal(t, "pat-1", appt.Patient.ID)
	assert.Nil(t, appt.Service)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("FROM appointments a").
		WithArgs(testApptID).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), testApptID)
	assert.True(t, errors.Is(err, ErrNotFound))

	// malformed ids never reach the database
	_, err = store.Get(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListScopesByPatient(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`a.patient_id = \$1 ORDER BY a.appointment_date DESC, a.start_time DESC`).
		WithArgs("pat-1").
		WillReturnRows(appointmentRows(testApptID, "PENDING"))

	appts, err := store.List(context.Background(), ListFilter{PatientID: "pat-1"})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, testApptID, appts[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBookedStartTimes(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT start_time FROM appointments").
		WithArgs(testDoctorID, "2025-06-10").
		WillReturnRows(pgxmock.NewRows([]string{"start_time"}).AddRow("09:00").AddRow("10:30"))

	starts, err := store.BookedStartTimes(context.Background(), testDoctorID, "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:30"}, starts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInTxCommitsInsertAndAudit(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), "user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(testApptID, pgxmock.AnyArg(), testDoctorID, pgxmock.AnyArg(), "user-1",
			"2025-06-10", "10:00", "10:30", "PENDING", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(pgxmock.AnyArg(), "user-1", audit.ActionCreate, audit.EntityAppointment, testApptID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		patientID, created, err := tx.EnsurePatient(ctx, "user-1")
		if err != nil {
			return err
		}
		assert.True(t, created)
		appt := &Appointment{
			ID: testApptID, PatientID: patientID, DoctorID: testDoctorID, UserID: "user-1",
			AppointmentDate: "2025-06-10", StartTime: "10:00", EndTime: "10:30", Status: StatusPending,
		}
		if err := tx.Insert(ctx, appt); err != nil {
			return err
		}
		entry, err := audit.Created("user-1", audit.EntityAppointment, appt.ID, appt)
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, entry)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsurePatientExisting(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), "user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT id::text FROM patients").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("pat-7"))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		id, created, err := tx.EnsurePatient(ctx, "user-1")
		assert.Equal(t, "pat-7", id)
		assert.False(t, created)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertMapsConstraintViolations(t *testing.T) {
	tests := []struct {
		name  string
		pgErr *pgconn.PgError
		want  error
	}{
		{"slot index", &pgconn.PgError{Code: "23505", ConstraintName: SlotIndex}, ErrSlotTaken},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "appointments_doctor_id_fkey"}, ErrUnknownReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, store := newMockStore(t)

			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO appointments").
				WithArgs(insertArgs(testApptID)...).
				WillReturnError(tt.pgErr)
			mock.ExpectRollback()

			err := store.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
				return tx.Insert(ctx, &Appointment{ID: testApptID, Status: StatusPending})
			})
			assert.True(t, errors.Is(err, tt.want))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresInsertOtherUniqueViolationIsNotSlotTaken(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(insertArgs(testApptID)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_pkey"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.Insert(ctx, &Appointment{ID: testApptID, Status: StatusPending})
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSlotTaken))
	assert.Contains(t, err.Error(), "scheduling: insert appointment")
}

func TestPostgresLockUpdateDelete(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF a").
		WithArgs(testApptID).
		WillReturnRows(appointmentRows(testApptID, "PENDING"))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(testApptID, "2025-06-10", "10:00", "10:30", "CONFIRMED",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM appointments").
		WithArgs(testApptID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		appt, err := tx.Lock(ctx, testApptID)
		if err != nil {
			return err
		}
		appt.Status = StatusConfirmed
		if err := tx.Update(ctx, appt); err != nil {
			return err
		}
		return tx.Delete(ctx, testApptID)
	})
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInTxBeginFailure(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := store.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		t.Fatal("callback must not run")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduling: begin tx")
}

// insertArgs matches the twelve INSERT INTO appointments parameters for a row
// whose only fixed value is its id.
func insertArgs(id string) []any {
	args := []any{id}
	for i := 0; i < 11; i++ {
		args = append(args, pgxmock.AnyArg())
	}
	return args
}
