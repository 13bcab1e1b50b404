// Package seed loads the demo clinic: an admin, four doctors, three patients,
// the service menu and two upcoming appointments.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/toothdoctor-api/internal/catalog"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/internal/scheduling"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

type Person struct {
	Email string
	Name  string
}

type DoctorProfile struct {
	Person
	Specialty string
}

var Admin = Person{Email: "admin@toothdoctor.com", Name: "Admin User"}

var Doctors = []DoctorProfile{
	{Person{"sarah.johnson@toothdoctor.com", "Sarah Johnson"}, "General Dentistry"},
	{Person{"michael.chen@toothdoctor.com", "Michael Chen"}, "Orthodontics"},
	{Person{"emily.rodriguez@toothdoctor.com", "Emily Rodriguez"}, "Pediatric Dentistry"},
	{Person{"james.williams@toothdoctor.com", "James Williams"}, "Oral Surgery"},
}

var Patients = []Person{
	{"john.doe@example.com", "John Doe"},
	{"jane.smith@example.com", "Jane Smith"},
	{"bob.wilson@example.com", "Bob Wilson"},
}

var Services = []catalog.DentalService{
	{Name: "General Checkup", Description: "Comprehensive oral examination to assess your dental health", PriceCents: 7500, DurationMinutes: 30},
	{Name: "Teeth Cleaning", Description: "Professional cleaning to remove plaque and tartar", PriceCents: 10000, DurationMinutes: 45},
	{Name: "Teeth Whitening", Description: "Professional whitening treatment for a brighter smile", PriceCents: 25000, DurationMinutes: 60},
	{Name: "Root Canal", Description: "Treatment to save infected or damaged teeth", PriceCents: 50000, DurationMinutes: 90},
	{Name: "Dental Implants", Description: "Permanent solution for missing teeth", PriceCents: 150000, DurationMinutes: 120},
	{Name: "Orthodontics Consultation", Description: "Initial consultation for braces or aligners", PriceCents: 10000, DurationMinutes: 45},
	{Name: "Emergency Care", Description: "Immediate care for dental emergencies", PriceCents: 15000, DurationMinutes: 60},
	{Name: "Pediatric Checkup", Description: "Specialized dental care for children", PriceCents: 6000, DurationMinutes: 30},
}

// WeekdayHours is the Monday to Friday 09:00-17:00 schedule every seeded doctor gets.
func WeekdayHours() []catalog.Availability {
	out := make([]catalog.Availability, 0, 5)
	for day := 1; day <= 5; day++ {
		out = append(out, catalog.Availability{
			DayOfWeek:   day,
			StartTime:   scheduling.DefaultOpen,
			EndTime:     scheduling.DefaultClose,
			IsAvailable: true,
		})
	}
	return out
}

// Target is a backing store the fixture can be written into. The Ensure
// methods are idempotent and return the existing id when the row is present.
type Target interface {
	EnsureUser(ctx context.Context, p Person, role identity.Role) (string, error)
	EnsurePatient(ctx context.Context, userID string) (string, error)
	EnsureDoctor(ctx context.Context, userID, specialty string, hours []catalog.Availability) (string, error)
	EnsureService(ctx context.Context, svc catalog.DentalService) (string, error)
	Appointments() scheduling.Store
}

// Result carries the ids assigned while seeding.
type Result struct {
	AdminUserID  string
	DoctorIDs    []string
	PatientIDs   []string
	PatientUsers []string
	ServiceIDs   []string
	Appointments []string
}

// Run writes the fixture into t. Sample appointments are booked for tomorrow
// and one week from now relative to now.
func Run(ctx context.Context, t Target, now time.Time, logger *logging.Logger) (*Result, error) {
	if logger == nil {
		logger = logging.Default()
	}
	res := &Result{}

	adminID, err := t.EnsureUser(ctx, Admin, identity.RoleStaffAdmin)
	if err != nil {
		return nil, fmt.Errorf("seed: admin: %w", err)
	}
	res.AdminUserID = adminID
	logger.Info("seeded admin user", "email", Admin.Email)

	for _, d := range Doctors {
		userID, err := t.EnsureUser(ctx, d.Person, identity.RoleDoctor)
		if err != nil {
			return nil, fmt.Errorf("seed: doctor user %s: %w", d.Email, err)
		}
		doctorID, err := t.EnsureDoctor(ctx, userID, d.Specialty, WeekdayHours())
		if err != nil {
			return nil, fmt.Errorf("seed: doctor %s: %w", d.Email, err)
		}
		res.DoctorIDs = append(res.DoctorIDs, doctorID)
	}
	logger.Info("seeded doctors", "count", len(res.DoctorIDs))

	for _, p := range Patients {
		userID, err := t.EnsureUser(ctx, p, identity.RolePatient)
		if err != nil {
			return nil, fmt.Errorf("seed: patient user %s: %w", p.Email, err)
		}
		patientID, err := t.EnsurePatient(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("seed: patient %s: %w", p.Email, err)
		}
		res.PatientIDs = append(res.PatientIDs, patientID)
		res.PatientUsers = append(res.PatientUsers, userID)
	}
	logger.Info("seeded patients", "count", len(res.PatientIDs))

	for _, svc := range Services {
		svc.IsActive = true
		id, err := t.EnsureService(ctx, svc)
		if err != nil {
			return nil, fmt.Errorf("seed: service %s: %w", svc.Name, err)
		}
		res.ServiceIDs = append(res.ServiceIDs, id)
	}
	logger.Info("seeded dental services", "count", len(res.ServiceIDs))

	samples := []*scheduling.Appointment{
		sample(res, 0, 0, 0, now.AddDate(0, 0, 1), "10:00", "10:30", scheduling.StatusConfirmed, "Regular checkup"),
		sample(res, 1, 1, 1, now.AddDate(0, 0, 7), "14:00", "14:45", scheduling.StatusPending, "Teeth cleaning"),
	}
	store := t.Appointments()
	for _, a := range samples {
		err := store.InTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
			return tx.Insert(ctx, a)
		})
		if errors.Is(err, scheduling.ErrSlotTaken) {
			logger.Info("sample appointment already present", "date", a.AppointmentDate, "start", a.StartTime)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed: appointment: %w", err)
		}
		res.Appointments = append(res.Appointments, a.ID)
	}
	logger.Info("seeded sample appointments", "count", len(res.Appointments))
	return res, nil
}

func sample(res *Result, patient, doctor, service int, day time.Time, start, end string, status scheduling.Status, reason string) *scheduling.Appointment {
	now := time.Now().UTC()
	svc := res.ServiceIDs[service]
	return &scheduling.Appointment{
		ID:              uuid.NewString(),
		PatientID:       res.PatientIDs[patient],
		DoctorID:        res.DoctorIDs[doctor],
		ServiceID:       &svc,
		UserID:          res.PatientUsers[patient],
		AppointmentDate: day.Format(scheduling.DateLayout),
		StartTime:       start,
		EndTime:         end,
		Status:          status,
		ReasonForVisit:  &reason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
