package mapping

import (
	"context"
	"sync"

	"github.com/chabad360/oscbind/bind"
)

// Source serves a snapshot of the stored mappings to a bind.System. The
// snapshot only changes on Refresh, so the apply loop never touches the
// database.
type Source struct {
	store *SQLiteStore

	mu   sync.RWMutex
	rows []bind.Mapping
}

var _ bind.MappingSource = (*Source)(nil)

// NewSource returns an empty Source reading from store.
func NewSource(store *SQLiteStore) *Source {
	return &Source{store: store}
}

// Refresh reloads the snapshot. On error the previous snapshot is kept.
func (s *Source) Refresh(ctx context.Context) error {
	rows, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	ms := make([]bind.Mapping, len(rows))
	for i, r := range rows {
		ms[i] = r.Mapping()
	}

	s.mu.Lock()
	s.rows = ms
	s.mu.Unlock()
	return nil
}

// Mappings returns the current snapshot. Callers must not modify it.
func (s *Source) Mappings() []bind.Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}
