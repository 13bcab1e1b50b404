package scheduling

import (
	"errors"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
)

// ErrNotFound is returned by stores when no appointment has the requested id.
var ErrNotFound = errors.New("scheduling: appointment not found")

var (
	ErrSlotTaken         = apperr.BadRequest("slot already booked")
	ErrMissingFields     = apperr.BadRequest("missing required fields")
	ErrEndBeforeStart    = apperr.BadRequest("endTime must be after startTime")
	ErrInvalidStatus     = apperr.BadRequest("invalid status")
	ErrUnknownReference  = apperr.BadRequest("unknown doctor or service")
	ErrDoctorUnavailable = apperr.BadRequest("doctor is not available at the requested time")

	ErrUnauthenticated    = apperr.Unauthorized("unauthorized")
	ErrAppointmentMissing = apperr.NotFound("appointment not found")
	ErrNoAccess           = apperr.Forbidden("you do not have access to this appointment")
	ErrCancelOnly         = apperr.Forbidden("you can only cancel appointments")
	ErrDeleteAdminOnly    = apperr.Forbidden("only administrators can delete appointments")
	ErrNoDoctorProfile    = apperr.Forbidden("doctor profile not found")
)
