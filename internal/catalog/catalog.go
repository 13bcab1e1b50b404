// Package catalog serves the clinic's doctors, their working windows and the
// dental services that can be booked.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/audit"
)

// ErrNotFound is returned by stores for unknown ids.
var ErrNotFound = errors.New("catalog: not found")

var (
	ErrServiceFields = apperr.BadRequest("name, description, priceCents and duration are required")
	ErrAdminOnly     = apperr.Forbidden("only administrators can manage services")
)

// Availability is a weekly working window. DayOfWeek follows time.Weekday (0 is Sunday).
type Availability struct {
	ID          string `json:"id"`
	DayOfWeek   int    `json:"dayOfWeek"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsAvailable bool   `json:"isAvailable"`
}

// Doctor is a practitioner profile with its user details.
type Doctor struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Specialty    string         `json:"specialty"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	Availability []Availability `json:"availability"`
}

// DentalService is a bookable treatment.
type DentalService struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PriceCents      int64     `json:"priceCents"`
	DurationMinutes int       `json:"duration"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreateServiceRequest is the POST /services payload.
type CreateServiceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
	Duration    int    `json:"duration"`
}

func (r *CreateServiceRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	if r.Name == "" || r.Description == "" || r.PriceCents <= 0 || r.Duration <= 0 {
		return ErrServiceFields
	}
	return nil
}

// Store reads and writes catalog entries.
type Store interface {
	ActiveDoctors(ctx context.Context) ([]Doctor, error)
	Doctor(ctx context.Context, id string) (*Doctor, error)
	ActiveServices(ctx context.Context) ([]DentalService, error)
	// InsertService stores svc and entry atomically.
	InsertService(ctx context.Context, svc *DentalService, entry audit.Entry) error
}
