package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/audit"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

// Service implements the catalog use cases.
type Service struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

func NewService(store Store, logger *logging.Logger) *Service {
	if store == nil {
		panic("catalog: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Doctors lists active doctors, newest first, with their availability.
func (s *Service) Doctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.store.ActiveDoctors(ctx)
	if err != nil {
		s.logger.Error("failed to list doctors", "error", err)
		return nil, apperr.Internal(err)
	}
	return doctors, nil
}

// Services lists active services ordered by name.
func (s *Service) Services(ctx context.Context) ([]DentalService, error) {
	services, err := s.store.ActiveServices(ctx)
	if err != nil {
		s.logger.Error("failed to list services", "error", err)
		return nil, apperr.Internal(err)
	}
	return services, nil
}

// CreateService adds an active service. Administrators only.
func (s *Service) CreateService(ctx context.Context, p *identity.Principal, req CreateServiceRequest) (*DentalService, error) {
	if p == nil {
		return nil, apperr.Unauthorized("unauthorized")
	}
	if !p.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc := &DentalService{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DurationMinutes: req.Duration,
		IsActive:        true,
		CreatedAt:       s.now().UTC(),
	}
	entry, err := audit.Created(p.UserID, audit.EntityDentalService, svc.ID, svc)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.store.InsertService(ctx, svc, entry); err != nil {
		s.logger.Error("failed to create service", "name", svc.Name, "error", err)
		return nil, apperr.Internal(fmt.Errorf("catalog: create service: %w", err))
	}
	s.logger.Info("dental service created", "service_id", svc.ID, "name", svc.Name, "user_id", p.UserID)
	return svc, nil
}
