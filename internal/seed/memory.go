package seed

import (
	"context"
	"errors"

	"github.com/wolfman30/toothdoctor-api/internal/catalog"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/internal/memstore"
	"github.com/wolfman30/toothdoctor-api/internal/scheduling"
)

// MemoryTarget seeds an in-process store. Only users are deduplicated, so it
// is meant to run once against a fresh store at startup.
type MemoryTarget struct {
	store *memstore.Store
}

func NewMemoryTarget(store *memstore.Store) *MemoryTarget {
	return &MemoryTarget{store: store}
}

func (m *MemoryTarget) EnsureUser(ctx context.Context, p Person, role identity.Role) (string, error) {
	existing, err := m.store.PrincipalByEmail(ctx, p.Email)
	if err == nil {
		return existing.UserID, nil
	}
	if !errors.Is(err, identity.ErrUserNotFound) {
		return "", err
	}
	return m.store.AddUser(p.Email, p.Name, role), nil
}

func (m *MemoryTarget) EnsurePatient(_ context.Context, userID string) (string, error) {
	return m.store.AddPatient(userID), nil
}

func (m *MemoryTarget) EnsureDoctor(_ context.Context, userID, specialty string, hours []catalog.Availability) (string, error) {
	return m.store.AddDoctor(userID, specialty, hours...), nil
}

func (m *MemoryTarget) EnsureService(_ context.Context, svc catalog.DentalService) (string, error) {
	return m.store.AddService(svc), nil
}

func (m *MemoryTarget) Appointments() scheduling.Store {
	return m.store
}
