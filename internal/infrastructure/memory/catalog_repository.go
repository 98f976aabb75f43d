package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var (
	_ repository.ItemRepository     = (*itemRepo)(nil)
	_ repository.BranchRepository   = (*branchRepo)(nil)
	_ repository.LocationRepository = (*locationRepo)(nil)
)

type itemRepo struct {
	s *Store
	u *unit
}

func (r *itemRepo) Create(ctx context.Context, item *entity.Item) error {
	if cur, _ := r.GetBySKU(ctx, item.SKU); cur != nil {
		return fmt.Errorf("%w: SKU %s", domain.ErrDuplicate, item.SKU)
	}
	r.put(*item)
	return nil
}

func (r *itemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	for _, it := range r.all() {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, nil
}

func (r *itemRepo) GetBySKU(_ context.Context, sku string) (*entity.Item, error) {
	for _, it := range r.all() {
		if it.SKU == sku {
			return it, nil
		}
	}
	return nil, nil
}

func (r *itemRepo) GetMany(_ context.Context, ids []string) (map[string]*entity.Item, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[string]*entity.Item, len(ids))
	for _, it := range r.all() {
		if _, ok := want[it.ID]; ok {
			out[it.ID] = it
		}
	}
	return out, nil
}

func (r *itemRepo) Update(ctx context.Context, item *entity.Item) error {
	if cur, _ := r.GetByID(ctx, item.ID); cur == nil {
		return fmt.Errorf("%w: item %s", domain.ErrNotFound, item.ID)
	}
	r.put(*item)
	return nil
}

func (r *itemRepo) List(_ context.Context, limit, offset int) ([]*entity.Item, error) {
	return page(r.all(), limit, offset), nil
}

func (r *itemRepo) put(it entity.Item) {
	if r.u != nil {
		r.u.items[it.ID] = it
		return
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.items[it.ID] = it
}

// all devuelve copias ordenadas por SKU.
func (r *itemRepo) all() []*entity.Item {
	merged := make(map[string]entity.Item)
	r.s.mu.RLock()
	for id, it := range r.s.data.items {
		merged[id] = it
	}
	r.s.mu.RUnlock()
	if r.u != nil {
		for id, it := range r.u.items {
			merged[id] = it
		}
	}
	out := make([]*entity.Item, 0, len(merged))
	for _, it := range merged {
		out = append(out, &it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

type branchRepo struct{ s *Store }

func (r *branchRepo) Create(_ context.Context, b *entity.Branch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.data.branches {
		if cur.Code == b.Code {
			return fmt.Errorf("%w: sucursal %s", domain.ErrDuplicate, b.Code)
		}
	}
	r.s.data.branches[b.ID] = *b
	return nil
}

func (r *branchRepo) GetByID(_ context.Context, id string) (*entity.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if b, ok := r.s.data.branches[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r *branchRepo) Update(_ context.Context, b *entity.Branch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.branches[b.ID]; !ok {
		return fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, b.ID)
	}
	r.s.data.branches[b.ID] = *b
	return nil
}

func (r *branchRepo) List(_ context.Context, limit, offset int) ([]*entity.Branch, error) {
	r.s.mu.RLock()
	out := make([]*entity.Branch, 0, len(r.s.data.branches))
	for _, b := range r.s.data.branches {
		out = append(out, &b)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, limit, offset), nil
}

type locationRepo struct{ s *Store }

func (r *locationRepo) Create(_ context.Context, l *entity.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.data.locations {
		if cur.BranchID == l.BranchID && cur.Code == l.Code {
			return fmt.Errorf("%w: ubicación %s", domain.ErrDuplicate, l.Code)
		}
	}
	r.s.data.locations[l.ID] = *l
	return nil
}

func (r *locationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.data.locations[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (r *locationRepo) ListByBranch(_ context.Context, branchID string) ([]*entity.Location, error) {
	r.s.mu.RLock()
	var out []*entity.Location
	for _, l := range r.s.data.locations {
		if l.BranchID == branchID {
			out = append(out, &l)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
