package repository

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/veripass/veripass/backend/reader-services/internal/readings"
)

var (
	ErrNotFound = errors.New("reading not found")
)

// MemoryRepo keeps readings in process memory. Used for unit tests and for
// running the service without a Mongo backend.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*readings.Reading
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*readings.Reading)}
}

func (m *MemoryRepo) Create(r *readings.Reading) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.store[r.ID] = &cp
	return r.ID, nil
}

func (m *MemoryRepo) Get(id string) (*readings.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.store[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(f readings.Filter) ([]*readings.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*readings.Reading, 0, len(m.store))
	for _, r := range m.store {
		if !matches(r, f) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRepo) AttachArtifact(id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	r.ArtifactKey = key
	r.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepo) Stats(f readings.Filter) (*readings.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := &readings.Stats{ByCategory: map[string]int64{}, ByProtocol: map[string]int64{}}
	for _, r := range m.store {
		if !matches(r, f) {
			continue
		}
		s.Total++
		switch r.Outcome {
		case readings.OutcomeSuccess:
			s.Successes++
		case readings.OutcomeFailure:
			s.Failures++
			if r.FailureCategory != "" {
				s.ByCategory[r.FailureCategory]++
			}
		}
		if r.Protocol != "" {
			s.ByProtocol[r.Protocol]++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Total)
	}
	return s, nil
}

func matches(r *readings.Reading, f readings.Filter) bool {
	if f.DeviceID != "" && r.DeviceID != f.DeviceID {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if f.FailureCategory != "" && r.FailureCategory != f.FailureCategory {
		return false
	}
	if f.Protocol != "" && r.Protocol != f.Protocol {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}
