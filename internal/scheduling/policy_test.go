package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
)

func strPtr(s string) *string { return &s }

func pendingAppointment() *Appointment {
	return &Appointment{
		ID:              "a-1",
		PatientID:       "pat-1",
		DoctorID:        "doc-1",
		UserID:          "user-pat",
		AppointmentDate: "2025-06-10",
		StartTime:       "10:00",
		EndTime:         "10:30",
		Status:          StatusPending,
	}
}

func TestRelationOf(t *testing.T) {
	appt := pendingAppointment()

	patient := &identity.Principal{UserID: "u1", Role: identity.RolePatient, PatientID: "pat-1"}
	doctor := &identity.Principal{UserID: "u2", Role: identity.RoleDoctor, DoctorID: "doc-1"}
	otherDoctor := &identity.Principal{UserID: "u3", Role: identity.RoleDoctor, DoctorID: "doc-2"}
	admin := &identity.Principal{UserID: "u4", Role: identity.RoleStaffAdmin}
	stranger := &identity.Principal{UserID: "u5", Role: identity.RolePatient, PatientID: "pat-9"}
	noProfile := &identity.Principal{UserID: "u6", Role: identity.RolePatient}

	assert.Equal(t, Relation{Patient: true}, RelationOf(patient, appt))
	assert.Equal(t, Relation{Doctor: true}, RelationOf(doctor, appt))
	assert.Equal(t, Relation{}, RelationOf(otherDoctor, appt))
	assert.Equal(t, Relation{Admin: true}, RelationOf(admin, appt))
	assert.False(t, RelationOf(stranger, appt).Any())
	assert.False(t, RelationOf(noProfile, appt).Any())
	assert.False(t, RelationOf(nil, appt).Any())
}

func TestPermitsDecisionTable(t *testing.T) {
	patient := Relation{Patient: true}
	doctor := Relation{Doctor: true}
	admin := Relation{Admin: true}
	none := Relation{}

	tests := []struct {
		action Action
		allow  map[string]bool
	}{
		{ActionView, map[string]bool{"patient": true, "doctor": true, "admin": true, "none": false}},
		{ActionCancel, map[string]bool{"patient": true, "doctor": true, "admin": true, "none": false}},
		{ActionChangeStatus, map[string]bool{"patient": false, "doctor": true, "admin": true, "none": false}},
		{ActionReschedule, map[string]bool{"patient": true, "doctor": false, "admin": true, "none": false}},
		{ActionWriteNotes, map[string]bool{"patient": false, "doctor": true, "admin": true, "none": false}},
		{ActionDelete, map[string]bool{"patient": false, "doctor": false, "admin": true, "none": false}},
	}
	rels := map[string]Relation{"patient": patient, "doctor": doctor, "admin": admin, "none": none}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			for name, rel := range rels {
				assert.Equal(t, tt.allow[name], Permits(rel, tt.action), "relation %s", name)
			}
		})
	}
	assert.False(t, Permits(admin, Action(99)))
}

func TestCanTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow},
		StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
		StatusNoShow:    {StatusConfirmed, StatusCompleted, StatusCancelled},
	}
	all := []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestApplyPatientCannotConfirm(t *testing.T) {
	_, err := Apply(Relation{Patient: true}, pendingAppointment(), UpdateRequest{Status: strPtr("CONFIRMED")}, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	assert.True(t, errors.Is(err, ErrCancelOnly))
}

func TestApplyPatientNonCancelStatusesForbidden(t *testing.T) {
	for _, status := range []string{"CONFIRMED", "COMPLETED", "NO_SHOW", "PENDING", "pending", "BOOKED"} {
		_, err := Apply(Relation{Patient: true}, pendingAppointment(), UpdateRequest{
			Status:    strPtr(status),
			StartTime: strPtr("11:00"),
			EndTime:   strPtr("11:30"),
		}, time.Now())
		assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err), status)
		assert.True(t, errors.Is(err, ErrCancelOnly), status)
	}
}

func TestApplyNoShowCanBeCorrected(t *testing.T) {
	for _, rel := range []Relation{{Doctor: true}, {Admin: true}} {
		for _, status := range []Status{StatusConfirmed, StatusCompleted, StatusCancelled} {
			noShow := pendingAppointment()
			noShow.Status = StatusNoShow
			next, err := Apply(rel, noShow, UpdateRequest{Status: strPtr(string(status))}, time.Now())
			require.NoError(t, err, status)
			assert.Equal(t, status, next.Status)
		}
	}

	noShow := pendingAppointment()
	noShow.Status = StatusNoShow
	_, err := Apply(Relation{Patient: true}, noShow, UpdateRequest{Status: strPtr("CONFIRMED")}, time.Now())
	assert.True(t, errors.Is(err, ErrCancelOnly))
}

func TestApplyDoctorAndAdminStatusChanges(t *testing.T) {
	for _, rel := range []Relation{{Doctor: true}, {Admin: true}} {
		for _, status := range []Status{StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow} {
			next, err := Apply(rel, pendingAppointment(), UpdateRequest{Status: strPtr(string(status))}, time.Now())
			require.NoError(t, err)
			assert.Equal(t, status, next.Status)
		}
	}
}

func TestApplyCancelRecordsTimestampAndReason(t *testing.T) {
	now := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)
	current := pendingAppointment()

	next, err := Apply(Relation{Patient: true}, current, UpdateRequest{
		Status:       strPtr("CANCELLED"),
		CancelReason: strPtr("feeling better"),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, next.Status)
	require.NotNil(t, next.CancelledAt)
	assert.True(t, next.CancelledAt.Equal(now))
	require.NotNil(t, next.CancelReason)
	assert.Equal(t, "feeling better", *next.CancelReason)

	// current is untouched
	assert.Equal(t, StatusPending, current.Status)
	assert.Nil(t, current.CancelledAt)

	next, err = Apply(Relation{Doctor: true}, current, UpdateRequest{Status: strPtr("cancelled")}, now)
	require.NoError(t, err)
	require.NotNil(t, next.CancelledAt)
	assert.Nil(t, next.CancelReason)
}

func TestApplyTerminalStatusRejected(t *testing.T) {
	completed := pendingAppointment()
	completed.Status = StatusCompleted

	_, err := Apply(Relation{Admin: true}, completed, UpdateRequest{Status: strPtr("CANCELLED")}, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "already COMPLETED")

	confirmed := pendingAppointment()
	confirmed.Status = StatusConfirmed
	same, err := Apply(Relation{Doctor: true}, confirmed, UpdateRequest{Status: strPtr("CONFIRMED")}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, same.Status)
}

func TestApplyNotesOnTerminalAppointment(t *testing.T) {
	completed := pendingAppointment()
	completed.Status = StatusCompleted

	next, err := Apply(Relation{Doctor: true}, completed, UpdateRequest{DoctorNotes: strPtr("follow up in 6 months")}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, next.DoctorNotes)
	assert.Equal(t, "follow up in 6 months", *next.DoctorNotes)
}

func TestApplyInvalidStatus(t *testing.T) {
	for _, status := range []string{"PENDING", "BOOKED"} {
		_, err := Apply(Relation{Admin: true}, pendingAppointment(), UpdateRequest{Status: strPtr(status)}, time.Now())
		assert.True(t, errors.Is(err, ErrInvalidStatus), status)
	}
}

func TestApplyFieldPermissionsSilentlyIgnored(t *testing.T) {
	req := UpdateRequest{
		AppointmentDate: strPtr("2025-06-12"),
		StartTime:       strPtr("14:00"),
		EndTime:         strPtr("14:30"),
		DoctorNotes:     strPtr("bring x-rays"),
	}

	byPatient, err := Apply(Relation{Patient: true}, pendingAppointment(), req, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-12", byPatient.AppointmentDate)
	assert.Equal(t, "14:00", byPatient.StartTime)
	assert.Nil(t, byPatient.DoctorNotes)

	byDoctor, err := Apply(Relation{Doctor: true}, pendingAppointment(), req, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", byDoctor.AppointmentDate)
	assert.Equal(t, "10:00", byDoctor.StartTime)
	require.NotNil(t, byDoctor.DoctorNotes)

	byAdmin, err := Apply(Relation{Admin: true}, pendingAppointment(), req, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-12", byAdmin.AppointmentDate)
	require.NotNil(t, byAdmin.DoctorNotes)
}

func TestApplyRescheduleValidation(t *testing.T) {
	_, err := Apply(Relation{Patient: true}, pendingAppointment(), UpdateRequest{EndTime: strPtr("09:30")}, time.Now())
	assert.True(t, errors.Is(err, ErrEndBeforeStart))

	_, err = Apply(Relation{Patient: true}, pendingAppointment(), UpdateRequest{AppointmentDate: strPtr("10/06/2025")}, time.Now())
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))

	_, err = Apply(Relation{Patient: true}, pendingAppointment(), UpdateRequest{StartTime: strPtr("9:00")}, time.Now())
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}

func TestApplyWithoutRelation(t *testing.T) {
	_, err := Apply(Relation{}, pendingAppointment(), UpdateRequest{Status: strPtr("CANCELLED")}, time.Now())
	assert.True(t, errors.Is(err, ErrNoAccess))
}

func TestRescheduled(t *testing.T) {
	a := pendingAppointment()
	b := a.Clone()
	assert.False(t, Rescheduled(a, b))
	b.EndTime = "11:00"
	assert.False(t, Rescheduled(a, b))
	b.StartTime = "10:30"
	assert.True(t, Rescheduled(a, b))
}
