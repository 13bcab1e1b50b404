package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AvailabilityRule accepts a booking only when it falls inside one of the
// doctor's available windows for that weekday.
type AvailabilityRule struct {
	store Store
}

func NewAvailabilityRule(store Store) *AvailabilityRule {
	return &AvailabilityRule{store: store}
}

// Allows reports whether doctorID works the whole of [startTime, endTime) on date.
// Inactive and unknown doctors are never available.
func (r *AvailabilityRule) Allows(ctx context.Context, doctorID, date, startTime, endTime string) (bool, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false, nil
	}
	doctor, err := r.store.Doctor(ctx, doctorID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: availability: %w", err)
	}
	return doctor.AvailableAt(day.Weekday(), startTime, endTime), nil
}

// AvailableAt reports whether a window on weekday covers start to end.
// Times are HH:MM and compare lexically.
func (d *Doctor) AvailableAt(weekday time.Weekday, start, end string) bool {
	if d == nil || !d.IsActive {
		return false
	}
	for _, w := range d.Availability {
		if !w.IsAvailable || w.DayOfWeek != int(weekday) {
			continue
		}
		if start >= w.StartTime && end <= w.EndTime {
			return true
		}
	}
	return false
}
