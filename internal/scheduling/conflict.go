package scheduling

import (
	"context"
	"fmt"
)

// ConflictChecker answers whether an active appointment already occupies a slot.
type ConflictChecker interface {
	HasConflict(ctx context.Context, doctorID, appointmentDate, startTime string) (bool, error)
}

// EnsureSlotFree returns ErrSlotTaken when the slot is occupied.
func EnsureSlotFree(ctx context.Context, c ConflictChecker, doctorID, appointmentDate, startTime string) error {
	taken, err := c.HasConflict(ctx, doctorID, appointmentDate, startTime)
	if err != nil {
		return fmt.Errorf("scheduling: conflict check: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}
	return nil
}
