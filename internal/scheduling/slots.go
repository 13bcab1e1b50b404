package scheduling

import (
	"fmt"
	"time"
)

// Clinic hours used by the booking grid.
const (
	DefaultOpen  = "09:00"
	DefaultClose = "17:00"
	DefaultStep  = 30 * time.Minute
)

// DaySlots lists the start times of every step-long slot that fits between open and close.
// 09:00 to 17:00 in 30 minute steps yields 09:00 through 16:30.
func DaySlots(open, close string, step time.Duration) ([]string, error) {
	from, err := ParseClock(open)
	if err != nil {
		return nil, err
	}
	to, err := ParseClock(close)
	if err != nil {
		return nil, err
	}
	minutes := int(step / time.Minute)
	if minutes <= 0 {
		return nil, fmt.Errorf("scheduling: slot step must be at least one minute")
	}
	var slots []string
	for m := from; m+minutes <= to; m += minutes {
		slots = append(slots, FormatClock(m))
	}
	return slots, nil
}

// FreeSlots removes booked start times from grid, preserving order.
func FreeSlots(grid, booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	free := make([]string, 0, len(grid))
	for _, s := range grid {
		if _, ok := taken[s]; !ok {
			free = append(free, s)
		}
	}
	return free
}
