package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.SaleRepository = (*saleRepo)(nil)

type saleRepo struct {
	s *Store
	u *unit
}

func copySale(s entity.Sale) entity.Sale {
	s.Lines = append([]entity.SaleLine(nil), s.Lines...)
	return s
}

func (r *saleRepo) Create(_ context.Context, sale *entity.Sale) error {
	if cur, _ := r.get(sale.ID); cur != nil {
		return fmt.Errorf("%w: venta %s", domain.ErrDuplicate, sale.ID)
	}
	r.put(copySale(*sale))
	return nil
}

func (r *saleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	return r.get(id)
}

func (r *saleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	if r.u != nil {
		if err := r.u.lock(ctx, saleLockName(id)); err != nil {
			return nil, err
		}
	}
	return r.get(id)
}

func (r *saleRepo) MarkRefunded(_ context.Context, sale *entity.Sale) error {
	cur, _ := r.get(sale.ID)
	if cur == nil {
		return fmt.Errorf("%w: venta %s", domain.ErrNotFound, sale.ID)
	}
	if cur.IsRefunded {
		return domain.ErrAlreadyRefunded
	}
	cur.IsRefunded = true
	cur.RefundedAt = sale.RefundedAt
	cur.RefundedBy = sale.RefundedBy
	cur.RefundReason = sale.RefundReason
	r.put(*cur)
	return nil
}

func (r *saleRepo) ListByBranch(_ context.Context, branchID string, limit, offset int) ([]*entity.Sale, error) {
	merged := make(map[string]entity.Sale)
	r.s.mu.RLock()
	for id, s := range r.s.data.sales {
		merged[id] = s
	}
	r.s.mu.RUnlock()
	if r.u != nil {
		for id, s := range r.u.sales {
			merged[id] = s
		}
	}
	var out []*entity.Sale
	for _, s := range merged {
		if s.BranchID == branchID {
			c := copySale(s)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

func (r *saleRepo) get(id string) (*entity.Sale, error) {
	if r.u != nil {
		if s, ok := r.u.sales[id]; ok {
			c := copySale(s)
			return &c, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if s, ok := r.s.data.sales[id]; ok {
		c := copySale(s)
		return &c, nil
	}
	return nil, nil
}

func (r *saleRepo) put(s entity.Sale) {
	if r.u != nil {
		r.u.sales[s.ID] = s
		return
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.sales[s.ID] = s
}

// page aplica limit/offset; limit <= 0 devuelve todo desde offset.
func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
