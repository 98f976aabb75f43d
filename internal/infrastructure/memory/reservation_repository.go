package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.ReservationRepository = (*reservationRepo)(nil)

type reservationRepo struct {
	s *Store
	u *unit
}

func (r *reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	res.ID = r.s.seqReservation.Add(1)
	r.put(*res)
	return nil
}

func (r *reservationRepo) GetActiveByTransfer(_ context.Context, transferID string) (*entity.Reservation, error) {
	for _, res := range r.all() {
		if res.TransferID == transferID && res.Active() {
			return res, nil
		}
	}
	return nil, nil
}

func (r *reservationRepo) Release(_ context.Context, id int64, at time.Time) error {
	var found *entity.Reservation
	for _, res := range r.all() {
		if res.ID == id {
			found = res
			break
		}
	}
	if found == nil {
		return fmt.Errorf("%w: reserva %d", domain.ErrNotFound, id)
	}
	if !found.Active() {
		return fmt.Errorf("%w: reserva %d ya liberada", domain.ErrConflict, id)
	}
	found.ReleasedAt = &at
	r.put(*found)
	return nil
}

func (r *reservationRepo) SumActive(_ context.Context, group entity.GroupKey) (int64, error) {
	var n int64
	for _, res := range r.all() {
		if res.Active() && res.ItemID == group.ItemID && res.BranchID == group.BranchID {
			n += res.Quantity
		}
	}
	return n, nil
}

func (r *reservationRepo) SumActiveByBranch(_ context.Context, branchID string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, res := range r.all() {
		if res.Active() && res.BranchID == branchID {
			out[res.ItemID] += res.Quantity
		}
	}
	return out, nil
}

func (r *reservationRepo) put(res entity.Reservation) {
	if r.u != nil {
		r.u.reservations[res.ID] = res
		return
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.reservations[res.ID] = res
}

func (r *reservationRepo) all() []*entity.Reservation {
	merged := make(map[int64]entity.Reservation)
	r.s.mu.RLock()
	for id, res := range r.s.data.reservations {
		merged[id] = res
	}
	r.s.mu.RUnlock()
	if r.u != nil {
		for id, res := range r.u.reservations {
			merged[id] = res
		}
	}
	out := make([]*entity.Reservation, 0, len(merged))
	for _, res := range merged {
		out = append(out, &res)
	}
	return out
}
