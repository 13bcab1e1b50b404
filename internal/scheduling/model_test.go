package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
)

const testDoctorID = "7f9c2d8e-3b1a-4c5d-9e6f-0a1b2c3d4e5f"

func TestCreateRequestValidate(t *testing.T) {
	valid := func() CreateRequest {
		return CreateRequest{
			DoctorID:        testDoctorID,
			AppointmentDate: "2025-06-10",
			StartTime:       "10:00",
			EndTime:         "10:30",
		}
	}

	req := valid()
	require.NoError(t, req.Validate())

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		want   error
	}{
		{"missing doctor", func(r *CreateRequest) { r.DoctorID = " " }, ErrMissingFields},
		{"missing date", func(r *CreateRequest) { r.AppointmentDate = "" }, ErrMissingFields},
		{"missing start", func(r *CreateRequest) { r.StartTime = "" }, ErrMissingFields},
		{"missing end", func(r *CreateRequest) { r.EndTime = "" }, ErrMissingFields},
		{"end before start", func(r *CreateRequest) { r.EndTime = "09:30" }, ErrEndBeforeStart},
		{"end equals start", func(r *CreateRequest) { r.EndTime = "10:00" }, ErrEndBeforeStart},
		{"doctor not a uuid", func(r *CreateRequest) { r.DoctorID = "doc-1" }, ErrUnknownReference},
		{"service not a uuid", func(r *CreateRequest) { r.ServiceID = strPtr("cleaning") }, ErrUnknownReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			assert.True(t, errors.Is(r.Validate(), tt.want))
		})
	}

	r := valid()
	r.AppointmentDate = "2025-02-30"
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(r.Validate()))

	r = valid()
	r.ServiceID = strPtr("")
	require.NoError(t, r.Validate())
	assert.Nil(t, r.ServiceID)
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" no_show ")
	assert.True(t, ok)
	assert.Equal(t, StatusNoShow, s)

	_, ok = ParseStatus("RESCHEDULED")
	assert.False(t, ok)

	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusNoShow.Terminal())
	assert.False(t, StatusCancelled.Occupying())
	assert.True(t, StatusNoShow.Occupying())
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("16:30")
	require.NoError(t, err)
	assert.Equal(t, 16*60+30, m)
	assert.Equal(t, "16:30", FormatClock(m))

	for _, bad := range []string{"4:30", "24:00", "12:60", "noon", "12:30:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestDaySlots(t *testing.T) {
	slots, err := DaySlots(DefaultOpen, DefaultClose, DefaultStep)
	require.NoError(t, err)
	require.Len(t, slots, 16)
	assert.Equal(t, "09:00", slots[0])
	assert.Equal(t, "16:30", slots[len(slots)-1])

	hourly, err := DaySlots("09:00", "12:00", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, hourly)

	_, err = DaySlots("09:00", "12:00", 0)
	assert.Error(t, err)
}

func TestFreeSlots(t *testing.T) {
	grid := []string{"09:00", "09:30", "10:00"}
	assert.Equal(t, []string{"09:00", "10:00"}, FreeSlots(grid, []string{"09:30", "15:00"}))
	assert.Equal(t, []string{}, FreeSlots(nil, nil))
}

func TestAppointmentCloneIsDeep(t *testing.T) {
	now := time.Now()
	a := &Appointment{
		ID:          "a-1",
		DoctorNotes: strPtr("x"),
		CancelledAt: &now,
		Doctor:      &DoctorRef{Name: "Dr. A"},
	}
	c := a.Clone()
	*c.DoctorNotes = "y"
	c.Doctor.Name = "Dr. B"
	assert.Equal(t, "x", *a.DoctorNotes)
	assert.Equal(t, "Dr. A", a.Doctor.Name)
	assert.Nil(t, (*Appointment)(nil).Clone())
}
