package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/wolfman30/toothdoctor-api/internal/audit"
	"github.com/wolfman30/toothdoctor-api/internal/scheduling"
)

func (s *Store) HasConflict(_ context.Context, doctorID, appointmentDate, startTime string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupied(doctorID, appointmentDate, startTime, ""), nil
}

func (s *Store) occupied(doctorID, date, start, exceptID string) bool {
	for _, a := range s.appointments {
		if a.ID != exceptID && a.DoctorID == doctorID && a.AppointmentDate == date &&
			a.StartTime == start && a.Status.Occupying() {
			return true
		}
	}
	return false
}

func (s *Store) Get(_ context.Context, id string) (*scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *Store) load(id string) (*scheduling.Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	out := a.Clone()
	if d, ok := s.doctors[out.DoctorID]; ok {
		out.Doctor = &scheduling.DoctorRef{ID: d.ID, Name: d.Name, Email: d.Email, Specialty: d.Specialty}
	}
	if uid, ok := s.patients[out.PatientID]; ok {
		ref := &scheduling.PatientRef{ID: out.PatientID}
		if u, ok := s.users[uid]; ok {
			ref.Name, ref.Email = u.name, u.email
		}
		out.Patient = ref
	}
	if out.ServiceID != nil {
		if svc, ok := s.services[*out.ServiceID]; ok {
			out.Service = &scheduling.ServiceRef{
				ID:              svc.ID,
				Name:            svc.Name,
				PriceCents:      svc.PriceCents,
				DurationMinutes: svc.DurationMinutes,
			}
		}
	}
	return out, nil
}

func (s *Store) List(_ context.Context, f scheduling.ListFilter) ([]scheduling.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []scheduling.Appointment{}
	for id, a := range s.appointments {
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		loaded, _ := s.load(id)
		out = append(out, *loaded)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppointmentDate != out[j].AppointmentDate {
			return out[i].AppointmentDate > out[j].AppointmentDate
		}
		return out[i].StartTime > out[j].StartTime
	})
	return out, nil
}

func (s *Store) BookedStartTimes(_ context.Context, doctorID, appointmentDate string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var starts []string
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && a.AppointmentDate == appointmentDate && a.Status.Occupying() {
			starts = append(starts, a.StartTime)
		}
	}
	sort.Strings(starts)
	return starts, nil
}

// InTx holds the store lock for the whole callback and restores the previous
// state when fn fails.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appointments := make(map[string]*scheduling.Appointment, len(s.appointments))
	for id, a := range s.appointments {
		appointments[id] = a
	}
	patients := make(map[string]string, len(s.patients))
	for id, uid := range s.patients {
		patients[id] = uid
	}
	entries := len(s.entries)

	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.appointments = appointments
		s.patients = patients
		s.entries = s.entries[:entries]
		return err
	}
	return nil
}

// memTx runs with Store.mu held. Rows are replaced, never mutated in place,
// so the rollback snapshot stays valid.
type memTx struct {
	s *Store
}

func (t *memTx) HasConflict(_ context.Context, doctorID, appointmentDate, startTime string) (bool, error) {
	return t.s.occupied(doctorID, appointmentDate, startTime, ""), nil
}

func (t *memTx) EnsurePatient(_ context.Context, userID string) (string, bool, error) {
	if id := t.s.patientOf(userID); id != "" {
		return id, false, nil
	}
	id := uuid.NewString()
	t.s.patients[id] = userID
	return id, true, nil
}

func (t *memTx) Insert(_ context.Context, a *scheduling.Appointment) error {
	if err := t.checkRefs(a); err != nil {
		return err
	}
	if a.Status.Occupying() && t.s.occupied(a.DoctorID, a.AppointmentDate, a.StartTime, "") {
		return scheduling.ErrSlotTaken
	}
	t.s.appointments[a.ID] = a.Clone()
	return nil
}

func (t *memTx) checkRefs(a *scheduling.Appointment) error {
	if _, ok := t.s.doctors[a.DoctorID]; !ok {
		return scheduling.ErrUnknownReference
	}
	if _, ok := t.s.patients[a.PatientID]; !ok {
		return scheduling.ErrUnknownReference
	}
	if a.ServiceID != nil {
		if _, ok := t.s.services[*a.ServiceID]; !ok {
			return scheduling.ErrUnknownReference
		}
	}
	return nil
}

func (t *memTx) Lock(_ context.Context, id string) (*scheduling.Appointment, error) {
	return t.s.load(id)
}

func (t *memTx) Load(_ context.Context, id string) (*scheduling.Appointment, error) {
	return t.s.load(id)
}

func (t *memTx) Update(_ context.Context, a *scheduling.Appointment) error {
	if _, ok := t.s.appointments[a.ID]; !ok {
		return scheduling.ErrNotFound
	}
	if a.Status.Occupying() && t.s.occupied(a.DoctorID, a.AppointmentDate, a.StartTime, a.ID) {
		return scheduling.ErrSlotTaken
	}
	row := a.Clone()
	row.Doctor, row.Patient, row.Service = nil, nil, nil
	t.s.appointments[a.ID] = row
	return nil
}

func (t *memTx) Delete(_ context.Context, id string) error {
	if _, ok := t.s.appointments[id]; !ok {
		return scheduling.ErrNotFound
	}
	delete(t.s.appointments, id)
	return nil
}

func (t *memTx) RecordAudit(_ context.Context, e audit.Entry) error {
	t.s.entries = append(t.s.entries, e)
	return nil
}
