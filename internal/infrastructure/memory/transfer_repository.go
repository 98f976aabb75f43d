package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.TransferRepository = (*transferRepo)(nil)

type transferRepo struct {
	s *Store
	u *unit
}

func (r *transferRepo) Create(_ context.Context, t *entity.TransferRequest) error {
	if cur := r.get(t.ID); cur != nil {
		return fmt.Errorf("%w: traslado %s", domain.ErrDuplicate, t.ID)
	}
	r.put(*t)
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(id), nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	if r.u != nil {
		if err := r.u.lock(ctx, transferLockName(id)); err != nil {
			return nil, err
		}
	}
	return r.get(id), nil
}

func (r *transferRepo) Update(_ context.Context, t *entity.TransferRequest) error {
	if cur := r.get(t.ID); cur == nil {
		return fmt.Errorf("%w: traslado %s", domain.ErrNotFound, t.ID)
	}
	r.put(*t)
	return nil
}

func (r *transferRepo) List(_ context.Context, f entity.TransferFilter) ([]*entity.TransferRequest, error) {
	merged := make(map[string]entity.TransferRequest)
	r.s.mu.RLock()
	for id, t := range r.s.data.transfers {
		merged[id] = t
	}
	r.s.mu.RUnlock()
	if r.u != nil {
		for id, t := range r.u.transfers {
			merged[id] = t
		}
	}
	var out []*entity.TransferRequest
	for _, t := range merged {
		if f.BranchID != "" && t.SourceBranchID != f.BranchID && t.DestinationBranchID != f.BranchID {
			continue
		}
		if f.State != "" && t.State != f.State {
			continue
		}
		if f.ItemID != "" && t.ItemID != f.ItemID {
			continue
		}
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r *transferRepo) get(id string) *entity.TransferRequest {
	if r.u != nil {
		if t, ok := r.u.transfers[id]; ok {
			return &t
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t, ok := r.s.data.transfers[id]; ok {
		return &t
	}
	return nil
}

func (r *transferRepo) put(t entity.TransferRequest) {
	if r.u != nil {
		r.u.transfers[t.ID] = t
		return
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.transfers[t.ID] = t
}
