// Package testkit provides in-memory adapters and synthetic study data for
// tests and local development. Nothing here touches the filesystem or a
// database.
package testkit

import (
	"context"
	"sync"

	"studyqc/domain/core"
	"studyqc/domain/dict"
	"studyqc/domain/rules"
	"studyqc/domain/table"
	"studyqc/ports"
)

// MemoryStudySource is an in-memory ports.StudySource keyed by ref
type MemoryStudySource struct {
	datasets     map[string]*table.Dataset
	changeRules  map[string][]rules.ChangeRule
	warningRules map[string][]rules.WarningRule
	dictionaries map[string]*dict.Dictionary
}

// NewMemoryStudySource creates an empty in-memory study source
func NewMemoryStudySource() *MemoryStudySource {
	return &MemoryStudySource{
		datasets:     make(map[string]*table.Dataset),
		changeRules:  make(map[string][]rules.ChangeRule),
		warningRules: make(map[string][]rules.WarningRule),
		dictionaries: make(map[string]*dict.Dictionary),
	}
}

// AddDataset registers a dataset under a ref
func (s *MemoryStudySource) AddDataset(ref string, ds *table.Dataset) *MemoryStudySource {
	s.datasets[ref] = ds
	return s
}

// AddChangeRules registers a correction rule table under a ref
func (s *MemoryStudySource) AddChangeRules(ref string, rs []rules.ChangeRule) *MemoryStudySource {
	s.changeRules[ref] = rs
	return s
}

// AddWarningRules registers a review rule table under a ref
func (s *MemoryStudySource) AddWarningRules(ref string, rs []rules.WarningRule) *MemoryStudySource {
	s.warningRules[ref] = rs
	return s
}

// AddDictionary registers a data dictionary under a ref
func (s *MemoryStudySource) AddDictionary(ref string, d *dict.Dictionary) *MemoryStudySource {
	s.dictionaries[ref] = d
	return s
}

// ReadDataset returns a deep copy so fixtures survive engine mutation
func (s *MemoryStudySource) ReadDataset(_ context.Context, ref string) (*table.Dataset, error) {
	ds, ok := s.datasets[ref]
	if !ok {
		return nil, core.NewNotFoundError("dataset", ref)
	}
	return ds.Clone(), nil
}

func (s *MemoryStudySource) ReadChangeRules(_ context.Context, ref string) ([]rules.ChangeRule, error) {
	rs, ok := s.changeRules[ref]
	if !ok {
		return nil, core.NewNotFoundError("change rules", ref)
	}
	return rs, nil
}

func (s *MemoryStudySource) ReadWarningRules(_ context.Context, ref string) ([]rules.WarningRule, error) {
	rs, ok := s.warningRules[ref]
	if !ok {
		return nil, core.NewNotFoundError("warning rules", ref)
	}
	return rs, nil
}

func (s *MemoryStudySource) ReadDictionary(_ context.Context, ref string) (*dict.Dictionary, error) {
	d, ok := s.dictionaries[ref]
	if !ok {
		return nil, core.NewNotFoundError("dictionary", ref)
	}
	return d, nil
}

// MemoryRunRepository is an in-memory ports.RunRepository
type MemoryRunRepository struct {
	mu    sync.RWMutex
	runs  map[core.RunID]*ports.RunRecord
	order []core.RunID
}

// NewMemoryRunRepository creates an empty in-memory run repository
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[core.RunID]*ports.RunRecord)}
}

func (m *MemoryRunRepository) Create(_ context.Context, rec *ports.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.runs[rec.ID] = &cp
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *MemoryRunRepository) Update(_ context.Context, rec *ports.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[rec.ID]; !ok {
		return core.NewNotFoundError("run", rec.ID.String())
	}
	cp := *rec
	m.runs[rec.ID] = &cp
	return nil
}

func (m *MemoryRunRepository) GetByID(_ context.Context, id core.RunID) (*ports.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.runs[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id.String())
	}
	cp := *rec
	return &cp, nil
}

// List returns newest-first, matching the postgres adapter's ordering
func (m *MemoryRunRepository) List(_ context.Context, filters ports.RunFilters) ([]*ports.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ports.RunRecord
	skipped := 0
	for i := len(m.order) - 1; i >= 0; i-- {
		rec := m.runs[m.order[i]]
		if filters.StudyKey != nil && rec.StudyKey != *filters.StudyKey {
			continue
		}
		if filters.Status != nil && rec.Status != *filters.Status {
			continue
		}
		if skipped < filters.Offset {
			skipped++
			continue
		}
		cp := *rec
		out = append(out, &cp)
		if filters.Limit > 0 && len(out) >= filters.Limit {
			break
		}
	}
	return out, nil
}
