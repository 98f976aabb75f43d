package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*stockRepo)(nil)

type stockRepo struct {
	s *Store
	u *unit
}

func (r *stockRepo) LockGroup(ctx context.Context, group entity.GroupKey) ([]*entity.StockLevel, error) {
	if r.u == nil {
		return r.ListByGroup(ctx, group)
	}
	if err := r.u.lock(ctx, stockLockName(group.ItemID, group.BranchID)); err != nil {
		return nil, err
	}
	levels, _ := r.ListByGroup(ctx, group)
	for _, l := range levels {
		if l.Key.LocationID == "" {
			return levels, nil
		}
	}
	anchor := entity.StockLevel{Key: entity.StockKey{ItemID: group.ItemID, BranchID: group.BranchID}}
	r.u.levels[anchor.Key] = anchor
	return append([]*entity.StockLevel{&anchor}, levels...), nil
}

func (r *stockRepo) ListByGroup(_ context.Context, group entity.GroupKey) ([]*entity.StockLevel, error) {
	return r.collect(func(k entity.StockKey) bool {
		return k.ItemID == group.ItemID && k.BranchID == group.BranchID
	}), nil
}

func (r *stockRepo) ListByBranch(_ context.Context, branchID string) ([]*entity.StockLevel, error) {
	return r.collect(func(k entity.StockKey) bool { return k.BranchID == branchID }), nil
}

func (r *stockRepo) ListGroups(_ context.Context, branchID string) ([]entity.GroupKey, error) {
	levels := r.collect(func(k entity.StockKey) bool { return branchID == "" || k.BranchID == branchID })
	seen := make(map[entity.GroupKey]struct{})
	var out []entity.GroupKey
	for _, l := range levels {
		g := l.Key.Group()
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

// Save fuera de una unidad toma el bloqueo del grupo; nunca se intercala con una unidad que lo tenga.
func (r *stockRepo) Save(ctx context.Context, level *entity.StockLevel) error {
	if r.u != nil {
		r.u.levels[level.Key] = *level
		return nil
	}
	name := stockLockName(level.Key.ItemID, level.Key.BranchID)
	if err := r.s.locks.acquire(ctx, name, r.s.lockTimeout); err != nil {
		return err
	}
	defer r.s.locks.release(name)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.levels[level.Key] = *level
	return nil
}

// collect mezcla lo confirmado con lo pendiente de la unidad; devuelve copias ordenadas por clave.
func (r *stockRepo) collect(match func(entity.StockKey) bool) []*entity.StockLevel {
	merged := make(map[entity.StockKey]entity.StockLevel)
	r.s.mu.RLock()
	for k, v := range r.s.data.levels {
		if match(k) {
			merged[k] = v
		}
	}
	r.s.mu.RUnlock()
	if r.u != nil {
		for k, v := range r.u.levels {
			if match(k) {
				merged[k] = v
			}
		}
	}
	out := make([]*entity.StockLevel, 0, len(merged))
	for _, v := range merged {
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.BranchID != b.BranchID {
			return a.BranchID < b.BranchID
		}
		return a.LocationID < b.LocationID
	})
	return out
}
