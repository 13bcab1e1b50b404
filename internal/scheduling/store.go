package scheduling

import (
	"context"

	"github.com/wolfman30/toothdoctor-api/internal/audit"
)

// Store persists appointments. Mutations go through InTx so the row change
// and its audit entry share one transaction.
type Store interface {
	ConflictChecker
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Get(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, f ListFilter) ([]Appointment, error)
	BookedStartTimes(ctx context.Context, doctorID, appointmentDate string) ([]string, error)
}

// Tx is the unit of work handed to InTx callbacks.
type Tx interface {
	ConflictChecker
	// EnsurePatient returns the patient profile for userID, creating it if absent.
	EnsurePatient(ctx context.Context, userID string) (patientID string, created bool, err error)
	Insert(ctx context.Context, a *Appointment) error
	// Lock loads an appointment and holds it until the transaction ends.
	Lock(ctx context.Context, id string) (*Appointment, error)
	// Load returns the appointment with doctor, patient and service populated.
	Load(ctx context.Context, id string) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id string) error
	RecordAudit(ctx context.Context, e audit.Entry) error
}

// AvailabilityRule optionally restricts bookings to a doctor's working windows.
type AvailabilityRule interface {
	Allows(ctx context.Context, doctorID, appointmentDate, startTime, endTime string) (bool, error)
}
