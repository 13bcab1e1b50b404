package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/audit"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/internal/observability/metrics"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

var tracer = otel.Tracer("toothdoctor.internal.scheduling")

// IdentityCache drops cached principals whose profile changed.
type IdentityCache interface {
	Forget(ctx context.Context, email string)
}

// Service orchestrates booking, updates and deletion of appointments.
type Service struct {
	store        Store
	availability AvailabilityRule
	identities   IdentityCache
	metrics      *metrics.SchedulingMetrics
	logger       *logging.Logger
	now          func() time.Time
}

// NewService creates the booking orchestrator.
func NewService(store Store, logger *logging.Logger) *Service {
	if store == nil {
		panic("scheduling: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// WithAvailability restricts bookings to the rule's windows.
func (s *Service) WithAvailability(rule AvailabilityRule) *Service {
	s.availability = rule
	return s
}

// WithIdentityCache invalidates cached principals after a patient profile is created.
func (s *Service) WithIdentityCache(cache IdentityCache) *Service {
	s.identities = cache
	return s
}

func (s *Service) WithMetrics(m *metrics.SchedulingMetrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// finish converts unexpected failures into Internal errors and records the outcome.
func (s *Service) finish(span trace.Span, op string, started time.Time, err error) error {
	outcome := "ok"
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			s.logger.Error("scheduling operation failed", "operation", op, "error", err)
			err = apperr.Internal(err)
		}
		outcome = string(apperr.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(started).Seconds())
	return err
}

func missing(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrAppointmentMissing
	}
	return err
}

// Create books a PENDING appointment for the caller, creating their patient
// profile on first booking.
func (s *Service) Create(ctx context.Context, p *identity.Principal, req CreateRequest) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.Create")
	defer span.End()
	started := time.Now()
	defer func() { err = s.finish(span, "create", started, err) }()

	if p == nil {
		return nil, ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("toothdoctor.doctor_id", req.DoctorID),
		attribute.String("toothdoctor.appointment_date", req.AppointmentDate),
		attribute.String("toothdoctor.start_time", req.StartTime),
	)

	if s.availability != nil {
		ok, err := s.availability.Allows(ctx, req.DoctorID, req.AppointmentDate, req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDoctorUnavailable
		}
	}

	var createdPatient bool
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		patientID := p.PatientID
		if patientID == "" {
			id, created, err := tx.EnsurePatient(ctx, p.UserID)
			if err != nil {
				return err
			}
			patientID, createdPatient = id, created
		}

		if err := EnsureSlotFree(ctx, tx, req.DoctorID, req.AppointmentDate, req.StartTime); err != nil {
			return err
		}

		now := s.now().UTC()
		row := &Appointment{
			ID:              uuid.NewString(),
			PatientID:       patientID,
			DoctorID:        req.DoctorID,
			ServiceID:       req.ServiceID,
			UserID:          p.UserID,
			AppointmentDate: req.AppointmentDate,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			Status:          StatusPending,
			ReasonForVisit:  req.ReasonForVisit,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Insert(ctx, row); err != nil {
			return err
		}
		loaded, err := tx.Load(ctx, row.ID)
		if err != nil {
			return err
		}
		entry, err := audit.Created(p.UserID, audit.EntityAppointment, loaded.ID, loaded)
		if err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, entry); err != nil {
			return err
		}
		appt = loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}

	if createdPatient && s.identities != nil {
		s.identities.Forget(ctx, p.Email)
	}
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"patient_id", appt.PatientID,
		"date", appt.AppointmentDate,
		"start_time", appt.StartTime,
	)
	return appt, nil
}

// Update applies a partial change under the caller's permissions.
func (s *Service) Update(ctx context.Context, p *identity.Principal, id string, req UpdateRequest) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.Update")
	defer span.End()
	started := time.Now()
	defer func() { err = s.finish(span, "update", started, err) }()

	if p == nil {
		return nil, ErrUnauthenticated
	}
	span.SetAttributes(attribute.String("toothdoctor.appointment_id", id))

	var before *Appointment
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.Lock(ctx, id)
		if err != nil {
			return missing(err)
		}
		now := s.now().UTC()
		next, err := Apply(RelationOf(p, current), current, req, now)
		if err != nil {
			return err
		}
		if Rescheduled(current, next) && next.Status.Occupying() {
			if err := EnsureSlotFree(ctx, tx, next.DoctorID, next.AppointmentDate, next.StartTime); err != nil {
				return err
			}
		}
		next.UpdatedAt = now
		if err := tx.Update(ctx, next); err != nil {
			return missing(err)
		}
		loaded, err := tx.Load(ctx, id)
		if err != nil {
			return err
		}
		entry, err := audit.Updated(p.UserID, audit.EntityAppointment, id, current, loaded)
		if err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, entry); err != nil {
			return err
		}
		before, appt = current, loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}

	if before.Status != appt.Status {
		s.metrics.ObserveTransition(string(before.Status), string(appt.Status))
	}
	s.logger.Info("appointment updated",
		"appointment_id", appt.ID,
		"user_id", p.UserID,
		"from_status", before.Status,
		"to_status", appt.Status,
	)
	return appt, nil
}

// Delete removes an appointment permanently. Only administrators may delete.
func (s *Service) Delete(ctx context.Context, p *identity.Principal, id string) (err error) {
	ctx, span := tracer.Start(ctx, "scheduling.Delete")
	defer span.End()
	started := time.Now()
	defer func() { err = s.finish(span, "delete", started, err) }()

	if p == nil {
		return ErrUnauthenticated
	}
	if !Permits(Relation{Admin: p.IsAdmin()}, ActionDelete) {
		return ErrDeleteAdminOnly
	}
	span.SetAttributes(attribute.String("toothdoctor.appointment_id", id))

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.Lock(ctx, id)
		if err != nil {
			return missing(err)
		}
		if err := tx.Delete(ctx, id); err != nil {
			return missing(err)
		}
		entry, err := audit.Deleted(p.UserID, audit.EntityAppointment, id, current)
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, entry)
	})
	if err != nil {
		return err
	}
	s.logger.Info("appointment deleted", "appointment_id", id, "user_id", p.UserID)
	return nil
}

// Get returns one appointment the caller is related to.
func (s *Service) Get(ctx context.Context, p *identity.Principal, id string) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.Get")
	defer span.End()
	started := time.Now()
	defer func() { err = s.finish(span, "get", started, err) }()

	if p == nil {
		return nil, ErrUnauthenticated
	}
	appt, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, missing(err)
	}
	if !Permits(RelationOf(p, appt), ActionView) {
		return nil, ErrNoAccess
	}
	return appt, nil
}

// List returns the caller's appointments, newest date first. Administrators see all.
func (s *Service) List(ctx context.Context, p *identity.Principal) (appts []Appointment, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.List")
	defer span.End()
	started := time.Now()
	defer func() { err = s.finish(span, "list", started, err) }()

	if p == nil {
		return nil, ErrUnauthenticated
	}
	var filter ListFilter
	switch {
	case p.IsAdmin():
	case p.Role == identity.RoleDoctor:
		if !p.HasDoctorProfile() {
			return nil, ErrNoDoctorProfile
		}
		filter.DoctorID = p.DoctorID
	default:
		if !p.HasPatientProfile() {
			return []Appointment{}, nil
		}
		filter.PatientID = p.PatientID
	}
	return s.store.List(ctx, filter)
}

// OpenSlots lists the start times still bookable for a doctor on a date.
func (s *Service) OpenSlots(ctx context.Context, doctorID, appointmentDate string) (slots []string, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.OpenSlots")
	defer span.End()
	started := time.Now()
	defer func() { err = s.finish(span, "open_slots", started, err) }()

	if _, err := uuid.Parse(doctorID); err != nil {
		return nil, ErrUnknownReference
	}
	if _, err := ParseDate(appointmentDate); err != nil {
		return nil, err
	}
	grid, err := DaySlots(DefaultOpen, DefaultClose, DefaultStep)
	if err != nil {
		return nil, err
	}
	booked, err := s.store.BookedStartTimes(ctx, doctorID, appointmentDate)
	if err != nil {
		return nil, err
	}
	return FreeSlots(grid, booked), nil
}
