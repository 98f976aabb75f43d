package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*movementRepo)(nil)

type movementRepo struct {
	s *Store
	u *unit
}

func (r *movementRepo) Append(_ context.Context, m *entity.StockMovement) error {
	m.ID = r.s.seqMovement.Add(1)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if r.u != nil {
		r.u.movements = append(r.u.movements, *m)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.movements = append(r.s.data.movements, *m)
	return nil
}

func (r *movementRepo) ListByGroup(_ context.Context, group entity.GroupKey, since time.Time) ([]*entity.StockMovement, error) {
	return r.collect(func(m *entity.StockMovement) bool {
		return m.ItemID == group.ItemID && m.BranchID == group.BranchID && !m.CreatedAt.Before(since)
	}), nil
}

func (r *movementRepo) ListBySale(_ context.Context, saleID string) ([]*entity.StockMovement, error) {
	return r.collect(func(m *entity.StockMovement) bool { return m.SaleID == saleID }), nil
}

func (r *movementRepo) ListByTransfer(_ context.Context, transferID string) ([]*entity.StockMovement, error) {
	return r.collect(func(m *entity.StockMovement) bool { return m.TransferID == transferID }), nil
}

func (r *movementRepo) collect(match func(*entity.StockMovement) bool) []*entity.StockMovement {
	var out []*entity.StockMovement
	add := func(src []entity.StockMovement) {
		for i := range src {
			m := src[i]
			if match(&m) {
				out = append(out, &m)
			}
		}
	}
	r.s.mu.RLock()
	add(r.s.data.movements)
	r.s.mu.RUnlock()
	if r.u != nil {
		add(r.u.movements)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
