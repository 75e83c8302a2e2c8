package persistence

import (
	"context"
	"sync"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
)

// InmemOutingRepository is an ordered list of rows kept in memory. It follows
// the same scan-by-id rules as the spreadsheet backends.
type InmemOutingRepository struct {
	mu   sync.RWMutex
	rows []outingrequest.Record
}

func NewInmemOutingRepository() *InmemOutingRepository {
	return &InmemOutingRepository{}
}

func (r *InmemOutingRepository) Append(_ context.Context, record *outingrequest.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *record)
	return nil
}

func (r *InmemOutingRepository) FindByID(_ context.Context, id string) (*outingrequest.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			rec := r.rows[i]
			return &rec, nil
		}
	}
	return nil, outingrequest.ErrRecordNotFound
}

func (r *InmemOutingRepository) UpdateStatus(_ context.Context, id string, status outingrequest.Status, comment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].Status = status
			r.rows[i].Comment = comment
			return nil
		}
	}
	return outingrequest.ErrRecordNotFound
}

// Records returns a snapshot of all rows in insertion order.
func (r *InmemOutingRepository) Records() []outingrequest.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]outingrequest.Record, len(r.rows))
	copy(out, r.rows)
	return out
}
