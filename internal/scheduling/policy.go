package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
)

// Relation describes how a principal is connected to one appointment.
// Access is granted by the union of the flags.
type Relation struct {
	Patient bool
	Doctor  bool
	Admin   bool
}

// RelationOf computes the caller's relation to a.
func RelationOf(p *identity.Principal, a *Appointment) Relation {
	if p == nil || a == nil {
		return Relation{}
	}
	return Relation{
		Patient: p.HasPatientProfile() && p.PatientID == a.PatientID,
		Doctor:  p.HasDoctorProfile() && p.DoctorID == a.DoctorID,
		Admin:   p.IsAdmin(),
	}
}

func (r Relation) Any() bool {
	return r.Patient || r.Doctor || r.Admin
}

// Action is something a caller may attempt on an appointment.
type Action int

const (
	ActionView Action = iota
	ActionCancel
	ActionChangeStatus
	ActionReschedule
	ActionWriteNotes
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionCancel:
		return "cancel"
	case ActionChangeStatus:
		return "change_status"
	case ActionReschedule:
		return "reschedule"
	case ActionWriteNotes:
		return "write_notes"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

var decisions = map[Action]func(Relation) bool{
	ActionView:         Relation.Any,
	ActionCancel:       Relation.Any,
	ActionChangeStatus: func(r Relation) bool { return r.Doctor || r.Admin },
	ActionReschedule:   func(r Relation) bool { return r.Patient || r.Admin },
	ActionWriteNotes:   func(r Relation) bool { return r.Doctor || r.Admin },
	ActionDelete:       func(r Relation) bool { return r.Admin },
}

// Permits is the (relation, action) decision table.
func Permits(rel Relation, a Action) bool {
	allow, ok := decisions[a]
	return ok && allow(rel)
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusNoShow:    {StatusConfirmed, StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from may move to to. CANCELLED and COMPLETED are terminal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transitionError(from, to Status) error {
	if from.Terminal() {
		return apperr.Forbidden(fmt.Sprintf("appointment is already %s", from))
	}
	return apperr.Forbidden(fmt.Sprintf("cannot change status from %s to %s", from, to))
}

// Apply computes the appointment that results from req under rel. current is not modified.
// A disallowed status change fails the whole request; other fields outside the
// caller's permissions are dropped.
func Apply(rel Relation, current *Appointment, req UpdateRequest, now time.Time) (*Appointment, error) {
	if !Permits(rel, ActionView) {
		return nil, ErrNoAccess
	}
	next := current.Clone()

	if present(req.Status) {
		to, ok := ParseStatus(*req.Status)
		// callers limited to cancelling are refused before the value is judged
		if to != StatusCancelled && !Permits(rel, ActionChangeStatus) {
			return nil, ErrCancelOnly
		}
		if !ok || to == StatusPending {
			return nil, ErrInvalidStatus
		}
		if to == StatusCancelled && !Permits(rel, ActionCancel) {
			return nil, ErrNoAccess
		}
		// re-sending the current non-terminal status is a no-op
		if to != current.Status || current.Status.Terminal() {
			if !CanTransition(current.Status, to) {
				return nil, transitionError(current.Status, to)
			}
			next.Status = to
			if to == StatusCancelled {
				at := now.UTC()
				next.CancelledAt = &at
				next.CancelReason = nil
				if present(req.CancelReason) {
					reason := strings.TrimSpace(*req.CancelReason)
					next.CancelReason = &reason
				}
			}
		}
	}

	if req.wantsReschedule() && Permits(rel, ActionReschedule) {
		if present(req.AppointmentDate) {
			next.AppointmentDate = strings.TrimSpace(*req.AppointmentDate)
		}
		if present(req.StartTime) {
			next.StartTime = strings.TrimSpace(*req.StartTime)
		}
		if present(req.EndTime) {
			next.EndTime = strings.TrimSpace(*req.EndTime)
		}
		if err := validateWindow(next.AppointmentDate, next.StartTime, next.EndTime); err != nil {
			return nil, err
		}
	}

	if present(req.DoctorNotes) && Permits(rel, ActionWriteNotes) {
		notes := strings.TrimSpace(*req.DoctorNotes)
		next.DoctorNotes = &notes
	}

	return next, nil
}

// Rescheduled reports whether the slot of b differs from a.
func Rescheduled(a, b *Appointment) bool {
	return a.AppointmentDate != b.AppointmentDate || a.StartTime != b.StartTime || a.DoctorID != b.DoctorID
}
