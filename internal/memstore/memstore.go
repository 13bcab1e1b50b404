// Package memstore keeps the whole clinic in process memory. It backs local
// development with USE_MEMORY_STORE=true and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/toothdoctor-api/internal/audit"
	"github.com/wolfman30/toothdoctor-api/internal/catalog"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/internal/scheduling"
)

type user struct {
	id    string
	email string
	name  string
	role  identity.Role
}

// Store implements scheduling.Store, catalog.Store and identity.Directory.
// A single mutex serialises transactions, which also enforces slot uniqueness.
type Store struct {
	mu           sync.Mutex
	users        map[string]*user
	patients     map[string]string // patient id -> user id
	doctors      map[string]*catalog.Doctor
	services     map[string]*catalog.DentalService
	appointments map[string]*scheduling.Appointment
	entries      []audit.Entry
}

func New() *Store {
	return &Store{
		users:        map[string]*user{},
		patients:     map[string]string{},
		doctors:      map[string]*catalog.Doctor{},
		services:     map[string]*catalog.DentalService{},
		appointments: map[string]*scheduling.Appointment{},
	}
}

// AddUser registers a user and returns its id.
func (s *Store) AddUser(email, name string, role identity.Role) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users[id] = &user{id: id, email: strings.ToLower(strings.TrimSpace(email)), name: name, role: role}
	return id
}

// AddPatient creates a patient profile for userID.
func (s *Store) AddPatient(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.patients[id] = userID
	return id
}

// AddDoctor creates an active doctor profile for userID.
func (s *Store) AddDoctor(userID, specialty string, windows ...catalog.Availability) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	d := &catalog.Doctor{
		ID:           uuid.NewString(),
		UserID:       userID,
		Specialty:    specialty,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		Availability: []catalog.Availability{},
	}
	if u != nil {
		d.Name, d.Email = u.name, u.email
	}
	for _, w := range windows {
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		d.Availability = append(d.Availability, w)
	}
	s.doctors[d.ID] = d
	return d.ID
}

// SetDoctorActive toggles a doctor's visibility and bookability.
func (s *Store) SetDoctorActive(doctorID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.doctors[doctorID]; ok {
		d.IsActive = active
	}
}

// AddService stores svc as-is, assigning an id if missing.
func (s *Store) AddService(svc catalog.DentalService) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}
	s.services[svc.ID] = &svc
	return svc.ID
}

// PrincipalByEmail implements identity.Directory.
func (s *Store) PrincipalByEmail(_ context.Context, email string) (*identity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.email != email {
			continue
		}
		p := &identity.Principal{UserID: u.id, Email: u.email, Name: u.name, Role: u.role}
		p.PatientID = s.patientOf(u.id)
		for _, d := range s.doctors {
			if d.UserID == u.id {
				p.DoctorID = d.ID
			}
		}
		return p, nil
	}
	return nil, identity.ErrUserNotFound
}

func (s *Store) patientOf(userID string) string {
	for pid, uid := range s.patients {
		if uid == userID {
			return pid
		}
	}
	return ""
}

// Audit exposes the recorded entries as an audit.Lister.
func (s *Store) Audit() *AuditLog {
	return &AuditLog{store: s}
}

// AuditLog is the read side of the in-memory audit trail.
type AuditLog struct {
	store *Store
}

func (a *AuditLog) List(_ context.Context, f audit.Filter) ([]audit.Entry, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	out := []audit.Entry{}
	for i := len(a.store.entries) - 1; i >= 0 && len(out) < f.EffectiveLimit(); i-- {
		if e := a.store.entries[i]; f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ActiveDoctors implements catalog.Store.
func (s *Store) ActiveDoctors(_ context.Context) ([]catalog.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []catalog.Doctor{}
	for _, d := range s.doctors {
		if d.IsActive {
			out = append(out, copyDoctor(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Doctor(_ context.Context, id string) (*catalog.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	c := copyDoctor(d)
	return &c, nil
}

func copyDoctor(d *catalog.Doctor) catalog.Doctor {
	c := *d
	c.Availability = append([]catalog.Availability{}, d.Availability...)
	return c
}

func (s *Store) ActiveServices(_ context.Context) ([]catalog.DentalService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []catalog.DentalService{}
	for _, svc := range s.services {
		if svc.IsActive {
			out = append(out, *svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertService(_ context.Context, svc *catalog.DentalService, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *svc
	s.services[c.ID] = &c
	s.entries = append(s.entries, entry)
	return nil
}
