// Package scheduling books, reschedules and transitions dental appointments.
package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusNoShow    Status = "NO_SHOW"
)

// ParseStatus accepts the wire spelling of a status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return st, true
	default:
		return "", false
	}
}

// Terminal reports whether no further status change is possible.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Occupying reports whether an appointment in this status holds its slot.
func (s Status) Occupying() bool {
	return s != StatusCancelled
}

// DoctorRef is the doctor summary embedded in appointment responses.
type DoctorRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Specialty string `json:"specialty"`
}

// PatientRef is the patient summary embedded in appointment responses.
type PatientRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ServiceRef is the dental service summary embedded in appointment responses.
type ServiceRef struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"priceCents"`
	DurationMinutes int    `json:"duration"`
}

// Appointment is a booked slot for a patient with a doctor.
type Appointment struct {
	ID              string     `json:"id"`
	PatientID       string     `json:"patientId"`
	DoctorID        string     `json:"doctorId"`
	ServiceID       *string    `json:"serviceId"`
	UserID          string     `json:"userId"`
	AppointmentDate string     `json:"appointmentDate"`
	StartTime       string     `json:"startTime"`
	EndTime         string     `json:"endTime"`
	Status          Status     `json:"status"`
	ReasonForVisit  *string    `json:"reasonForVisit"`
	DoctorNotes     *string    `json:"doctorNotes"`
	CancelReason    *string    `json:"cancelReason"`
	CancelledAt     *time.Time `json:"cancelledAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	Doctor  *DoctorRef  `json:"doctor,omitempty"`
	Patient *PatientRef `json:"patient,omitempty"`
	Service *ServiceRef `json:"service,omitempty"`
}

// Clone returns a deep copy so snapshots are not affected by later edits.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	c.ServiceID = cloneString(a.ServiceID)
	c.ReasonForVisit = cloneString(a.ReasonForVisit)
	c.DoctorNotes = cloneString(a.DoctorNotes)
	c.CancelReason = cloneString(a.CancelReason)
	if a.CancelledAt != nil {
		t := *a.CancelledAt
		c.CancelledAt = &t
	}
	if a.Doctor != nil {
		d := *a.Doctor
		c.Doctor = &d
	}
	if a.Patient != nil {
		p := *a.Patient
		c.Patient = &p
	}
	if a.Service != nil {
		s := *a.Service
		c.Service = &s
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// CreateRequest is the booking payload. A client-supplied status is never read.
type CreateRequest struct {
	DoctorID        string  `json:"doctorId"`
	ServiceID       *string `json:"serviceId"`
	AppointmentDate string  `json:"appointmentDate"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	ReasonForVisit  *string `json:"reasonForVisit"`
}

// Validate checks presence and format of the booking fields.
func (r *CreateRequest) Validate() error {
	r.DoctorID = strings.TrimSpace(r.DoctorID)
	r.AppointmentDate = strings.TrimSpace(r.AppointmentDate)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.EndTime = strings.TrimSpace(r.EndTime)
	if r.DoctorID == "" || r.AppointmentDate == "" || r.StartTime == "" || r.EndTime == "" {
		return ErrMissingFields
	}
	if r.ServiceID != nil && strings.TrimSpace(*r.ServiceID) == "" {
		r.ServiceID = nil
	}
	if _, err := uuid.Parse(r.DoctorID); err != nil {
		return ErrUnknownReference
	}
	if r.ServiceID != nil {
		if _, err := uuid.Parse(*r.ServiceID); err != nil {
			return ErrUnknownReference
		}
	}
	return validateWindow(r.AppointmentDate, r.StartTime, r.EndTime)
}

// UpdateRequest is the PATCH payload. Absent or empty fields are left unchanged.
type UpdateRequest struct {
	Status          *string `json:"status"`
	AppointmentDate *string `json:"appointmentDate"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	DoctorNotes     *string `json:"doctorNotes"`
	CancelReason    *string `json:"cancelReason"`
}

func (r UpdateRequest) wantsReschedule() bool {
	return present(r.AppointmentDate) || present(r.StartTime) || present(r.EndTime)
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// ListFilter scopes a listing. Empty fields mean no restriction.
type ListFilter struct {
	PatientID string
	DoctorID  string
}

const (
	// DateLayout is the wire format of appointmentDate.
	DateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.BadRequest("appointmentDate must be YYYY-MM-DD")
	}
	return d, nil
}

// ParseClock validates an HH:MM time of day and returns minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 {
		return 0, apperr.BadRequest("times must be HH:MM")
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, apperr.BadRequest("times must be HH:MM")
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format(timeLayout)
}

func validateWindow(date, start, end string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	from, err := ParseClock(start)
	if err != nil {
		return err
	}
	to, err := ParseClock(end)
	if err != nil {
		return err
	}
	if to <= from {
		return ErrEndBeforeStart
	}
	return nil
}
