package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.LedgerHoldRepository = (*holdRepo)(nil)

type holdRepo struct {
	s *Store
	u *unit
}

func (r *holdRepo) GetActive(_ context.Context, group entity.GroupKey) (*entity.LedgerHold, error) {
	if r.u != nil {
		if h, ok := r.u.holds[group]; ok {
			return &h, nil
		}
		if _, ok := r.u.clearedHolds[group]; ok {
			return nil, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if h, ok := r.s.data.holds[group]; ok {
		return &h, nil
	}
	return nil, nil
}

func (r *holdRepo) Create(ctx context.Context, hold *entity.LedgerHold) error {
	group := entity.GroupKey{ItemID: hold.ItemID, BranchID: hold.BranchID}
	if cur, _ := r.GetActive(ctx, group); cur != nil {
		return nil
	}
	if r.u != nil {
		delete(r.u.clearedHolds, group)
		r.u.holds[group] = *hold
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.holds[group] = *hold
	return nil
}

func (r *holdRepo) Clear(ctx context.Context, group entity.GroupKey, by, reason string, at time.Time) error {
	cur, _ := r.GetActive(ctx, group)
	if cur == nil {
		return fmt.Errorf("%w: suspensión de %s@%s", domain.ErrNotFound, group.ItemID, group.BranchID)
	}
	cleared := *cur
	cleared.ClearedAt = &at
	cleared.ClearedBy = by
	cleared.ClearReason = reason
	if r.u != nil {
		delete(r.u.holds, group)
		r.u.clearedHolds[group] = cleared
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.holds, group)
	r.s.data.holdHistory = append(r.s.data.holdHistory, cleared)
	return nil
}

func (r *holdRepo) ListActive(_ context.Context, branchID string) ([]*entity.LedgerHold, error) {
	merged := make(map[entity.GroupKey]entity.LedgerHold)
	r.s.mu.RLock()
	for k, h := range r.s.data.holds {
		merged[k] = h
	}
	r.s.mu.RUnlock()
	if r.u != nil {
		for k := range r.u.clearedHolds {
			delete(merged, k)
		}
		for k, h := range r.u.holds {
			merged[k] = h
		}
	}
	var out []*entity.LedgerHold
	for _, h := range merged {
		if branchID != "" && h.BranchID != branchID {
			continue
		}
		out = append(out, &h)
	}
	sort.Slice(out, func(i, j int) bool {
		return entity.GroupKey{ItemID: out[i].ItemID, BranchID: out[i].BranchID}.
			Less(entity.GroupKey{ItemID: out[j].ItemID, BranchID: out[j].BranchID})
	})
	return out, nil
}
