package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clinic/clinic/internal/domain/directory"
)

// MemoryStore is an in-process Store. A single mutex makes the conflict check
// and the write in Save one atomic step.
type MemoryStore struct {
	mu       sync.RWMutex
	doctors  map[int64]*directory.Doctor
	patients map[int64]*directory.Patient
	appts    map[int64]*Appointment
	nextID   int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		doctors:  make(map[int64]*directory.Doctor),
		patients: make(map[int64]*directory.Patient),
		appts:    make(map[int64]*Appointment),
		now:      time.Now,
	}
}

func (s *MemoryStore) AddDoctor(d *directory.Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.doctors[d.ID] = &cp
}

func (s *MemoryStore) AddPatient(p *directory.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.patients[p.ID] = &cp
}

func (s *MemoryStore) FindDoctor(_ context.Context, id int64) (*directory.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) FindPatient(_ context.Context, id int64) (*directory.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) FindAppointment(_ context.Context, id int64) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) FindAppointmentsForDoctorInRange(_ context.Context, doctorID int64, from, to time.Time) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Appointment
	for _, a := range s.appts {
		if a.DoctorID != doctorID || a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *MemoryStore) FindAppointmentsForPatient(_ context.Context, patientID int64) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Appointment
	for _, a := range s.appts {
		if a.PatientID == patientID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, a *Appointment, buffer time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if a.ID == 0 {
		if a.Active() && s.conflictLocked(a, buffer) {
			return ErrSlotTaken
		}
		s.nextID++
		a.ID = s.nextID
		a.VersionID = 1
		a.CreatedAt = now
		a.UpdatedAt = now
		cp := *a
		s.appts[a.ID] = &cp
		return nil
	}

	cur, ok := s.appts[a.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.VersionID != a.VersionID {
		return ErrStaleVersion
	}
	if a.Active() && !a.StartTime.Equal(cur.StartTime) && s.conflictLocked(a, buffer) {
		return ErrSlotTaken
	}
	a.VersionID++
	a.UpdatedAt = now
	cp := *a
	s.appts[a.ID] = &cp
	return nil
}

func (s *MemoryStore) conflictLocked(a *Appointment, buffer time.Duration) bool {
	for _, other := range s.appts {
		if other.ID == a.ID || other.DoctorID != a.DoctorID || !other.Active() {
			continue
		}
		if conflicts(a.StartTime, other.StartTime, buffer) {
			return true
		}
	}
	return false
}
