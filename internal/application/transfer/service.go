// Package transfer conduce el ciclo de vida de los traslados entre sucursales:
// reserva en origen al crear y movimiento enlazado origen → destino al recibir.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/application/ledger"
	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

// Service máquina de estados de traslados.
type Service struct {
	txRunner ports.TxRunner
	store    repository.Repos
	ledger   *ledger.Ledger
	trail    *audit.Trail
	policy   access.Policy
	log      *logger.Logger
	metrics  ports.Metrics
	now      func() time.Time
}

// NewService construye el servicio de traslados.
func NewService(
	txRunner ports.TxRunner,
	store repository.Repos,
	ldg *ledger.Ledger,
	trail *audit.Trail,
	policy access.Policy,
	log *logger.Logger,
	metrics ports.Metrics,
) *Service {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		txRunner: txRunner,
		store:    store,
		ledger:   ldg,
		trail:    trail,
		policy:   policy,
		log:      log.Component("transfer"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Create reserva qty en el origen y deja el traslado en REQUESTED.
func (s *Service) Create(ctx context.Context, actor entity.Actor, in dto.CreateTransferRequest) (t *entity.TransferRequest, err error) {
	defer func() { s.metrics.ObserveTransfer(string(entity.TransferRequested), domain.Code(err)) }()

	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	reason, err := audit.NormalizeReason(in.Reason)
	if err != nil {
		return nil, err
	}
	if err := access.RequireAny(s.policy, actor, access.ReadWrite, in.SourceBranchID, in.DestinationBranchID); err != nil {
		return nil, err
	}
	item, err := s.store.Items.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, in.ItemID)
	}

	now := s.now().UTC()
	t = &entity.TransferRequest{
		ID:                  uuid.New().String(),
		SourceBranchID:      in.SourceBranchID,
		DestinationBranchID: in.DestinationBranchID,
		ItemID:              in.ItemID,
		Quantity:            in.Quantity,
		State:               entity.TransferRequested,
		Reason:              reason,
		RequestedBy:         actor.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err = s.txRunner.Run(ctx, func(tx repository.Repos) error {
		// El disponible se calcula bajo el mismo bloqueo que la reserva.
		g, err := s.ledger.Lock(ctx, tx, entity.GroupKey{ItemID: in.ItemID, BranchID: in.SourceBranchID})
		if err != nil {
			return err
		}
		availableBefore := g.Available()
		if _, err := s.ledger.Reserve(ctx, tx, g, in.Quantity, t.ID); err != nil {
			return err
		}
		t.ReservedQuantity = in.Quantity
		if err := tx.Transfers.Create(ctx, t); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		_, err = s.trail.Record(ctx, tx.Audit, audit.Entry{
			Actor:      actor,
			BranchID:   in.SourceBranchID,
			Action:     entity.ActionTransferRequest,
			ObjectType: "transfer",
			ObjectID:   t.ID,
			Reason:     reason,
			Before:     map[string]any{"state": nil, "available": availableBefore},
			After:      transferSnapshot(t, map[string]any{"available": g.Available()}),
		})
		return err
	})
	if err != nil {
		s.log.Debug().Err(err).Str("item_id", in.ItemID).Str("source", in.SourceBranchID).Msg("traslado rechazado")
		return nil, err
	}
	return t, nil
}

// Transition mueve el traslado a target. Desde un estado que no lo permite falla con
// *domain.InvalidTransitionError y no escribe nada.
func (s *Service) Transition(ctx context.Context, actor entity.Actor, transferID string, target entity.TransferState, reason string) (t *entity.TransferRequest, err error) {
	defer func() { s.metrics.ObserveTransfer(string(target), domain.Code(err)) }()

	if !target.Valid() || target == entity.TransferRequested {
		return nil, fmt.Errorf("%w: estado destino %q", domain.ErrInvalidInput, target)
	}
	reason, err = audit.NormalizeReason(reason)
	if err != nil {
		return nil, err
	}

	// 1) Alcance antes de cualquier bloqueo; origen y destino no cambian nunca
	cur, err := s.store.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
	}
	if err := s.requireFor(actor, cur, target); err != nil {
		return nil, err
	}

	err = s.txRunner.Run(ctx, func(tx repository.Repos) error {
		// 2) Fila del traslado primero, luego los grupos
		locked, err := tx.Transfers.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("%w: traslado %s", domain.ErrNotFound, transferID)
		}
		if !CanTransition(locked.State, target) {
			return &domain.InvalidTransitionError{TransferID: transferID, From: string(locked.State), To: string(target)}
		}
		before := transferSnapshot(locked, nil)

		// 3) Efecto sobre el libro
		var extra map[string]any
		switch target {
		case entity.TransferRejected:
			extra, err = s.releaseOnReject(ctx, tx, locked)
		case entity.TransferReceived:
			extra, err = s.receive(ctx, tx, actor, locked, reason)
		}
		if err != nil {
			return err
		}

		// 4) Estado, sello de tiempo y actor del paso
		stamp(locked, target, actor.ID, reason, s.now().UTC())
		if err := tx.Transfers.Update(ctx, locked); err != nil {
			return fmt.Errorf("update transfer: %w", err)
		}
		if extra != nil {
			before["stock"] = extra["before"]
		}
		_, err = s.trail.Record(ctx, tx.Audit, audit.Entry{
			Actor:      actor,
			BranchID:   auditBranch(locked, target),
			Action:     actionFor(target),
			ObjectType: "transfer",
			ObjectID:   transferID,
			Reason:     reason,
			Before:     before,
			After:      transferSnapshot(locked, extraAfter(extra)),
		})
		t = locked
		return err
	})
	if err != nil {
		var inv *domain.InvalidTransitionError
		if errors.As(err, &inv) {
			s.log.Debug().Str("transfer_id", transferID).Str("from", inv.From).Str("to", inv.To).Msg("transición inválida")
		} else if domain.IsRetryable(err) {
			s.log.Warn().Err(err).Str("transfer_id", transferID).Msg("transición abortada por bloqueo")
		}
		return nil, err
	}
	return t, nil
}

// Get consulta un traslado; requiere lectura en origen o destino.
func (s *Service) Get(ctx context.Context, actor entity.Actor, id string) (*entity.TransferRequest, error) {
	t, err := s.store.Transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: traslado %s", domain.ErrNotFound, id)
	}
	if err := access.RequireAny(s.policy, actor, access.ReadOnly, t.SourceBranchID, t.DestinationBranchID); err != nil {
		return nil, err
	}
	return t, nil
}

// List lista traslados. Sin sucursal en el filtro, un actor sin alcance entre sucursales ve solo la suya.
func (s *Service) List(ctx context.Context, actor entity.Actor, f entity.TransferFilter) ([]*entity.TransferRequest, error) {
	if f.BranchID != "" {
		if err := access.Require(s.policy, actor, f.BranchID, access.ReadOnly); err != nil {
			return nil, err
		}
	} else if access.CrossBranch(s.policy, actor) < access.ReadOnly {
		if actor.HomeBranchID == "" {
			return nil, fmt.Errorf("%w: actor sin sucursal base", domain.ErrForbidden)
		}
		f.BranchID = actor.HomeBranchID
	}
	if f.State != "" && !f.State.Valid() {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, f.State)
	}
	page := dto.PageRequest{Limit: f.Limit, Offset: f.Offset}
	page.DefaultPage()
	f.Limit, f.Offset = page.Limit, page.Offset
	return s.store.Transfers.List(ctx, f)
}

func (s *Service) requireFor(actor entity.Actor, t *entity.TransferRequest, target entity.TransferState) error {
	switch target {
	case entity.TransferApproved:
		return access.Require(s.policy, actor, t.SourceBranchID, access.ReadWrite)
	case entity.TransferReceived:
		return access.Require(s.policy, actor, t.DestinationBranchID, access.ReadWrite)
	default:
		return access.RequireAny(s.policy, actor, access.ReadWrite, t.SourceBranchID, t.DestinationBranchID)
	}
}

// releaseOnReject libera la reserva del origen.
func (s *Service) releaseOnReject(ctx context.Context, tx repository.Repos, t *entity.TransferRequest) (map[string]any, error) {
	g, err := s.ledger.Lock(ctx, tx, entity.GroupKey{ItemID: t.ItemID, BranchID: t.SourceBranchID})
	if err != nil {
		return nil, err
	}
	availableBefore := g.Available()
	if err := s.release(ctx, tx, g, t); err != nil {
		return nil, err
	}
	return map[string]any{
		"before":    ledger.Snapshot(g),
		"stock":     ledger.Snapshot(g),
		"available": map[string]int64{"before": availableBefore, "after": g.Available()},
	}, nil
}

// receive libera la reserva, descuenta en origen y suma en el cubo sin ubicación del destino.
func (s *Service) receive(ctx context.Context, tx repository.Repos, actor entity.Actor, t *entity.TransferRequest, reason string) (map[string]any, error) {
	src := entity.GroupKey{ItemID: t.ItemID, BranchID: t.SourceBranchID}
	dst := entity.GroupKey{ItemID: t.ItemID, BranchID: t.DestinationBranchID}
	groups, err := s.ledger.LockAll(ctx, tx, []entity.GroupKey{src, dst})
	if err != nil {
		return nil, err
	}
	gs, gd := groups[src], groups[dst]
	before := ledger.Snapshot(gs, gd)

	if err := s.release(ctx, tx, gs, t); err != nil {
		return nil, err
	}
	if t.Quantity > gs.Available() {
		return nil, &domain.InsufficientStockError{
			ItemID: t.ItemID, BranchID: t.SourceBranchID, Requested: t.Quantity, Available: gs.Available(),
		}
	}
	mv := ledger.MovementInput{Kind: entity.MovementKindTransferOut, Reason: reason, ActorID: actor.ID, TransferID: t.ID}
	outs, err := s.ledger.Drain(ctx, tx, gs, t.Quantity, mv)
	if err != nil {
		return nil, err
	}
	mv.Kind = entity.MovementKindTransferIn
	mv.LinkedMovementID = outs[0].ID
	if _, err := s.ledger.Increment(ctx, tx, gd, "", t.Quantity, mv); err != nil {
		return nil, err
	}
	return map[string]any{"before": before, "stock": ledger.Snapshot(gs, gd)}, nil
}

// release libera exactamente una vez la reserva activa del traslado.
func (s *Service) release(ctx context.Context, tx repository.Repos, g *ledger.Group, t *entity.TransferRequest) error {
	r, err := tx.Reservations.GetActiveByTransfer(ctx, t.ID)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: el traslado %s no tiene reserva activa", domain.ErrInvalidTransition, t.ID)
	}
	if err := s.ledger.Release(ctx, tx, g, r); err != nil {
		return err
	}
	t.ReservedQuantity = 0
	return nil
}

func stamp(t *entity.TransferRequest, to entity.TransferState, actorID, reason string, at time.Time) {
	t.State = to
	t.UpdatedAt = at
	switch to {
	case entity.TransferApproved:
		t.ApprovedBy, t.ApprovedAt = actorID, &at
	case entity.TransferPickedUp:
		t.PickedUpBy, t.PickedUpAt = actorID, &at
	case entity.TransferDelivered:
		t.DeliveredBy, t.DeliveredAt = actorID, &at
	case entity.TransferReceived:
		t.ReceivedBy, t.ReceivedAt = actorID, &at
	case entity.TransferRejected:
		t.RejectedBy, t.RejectedAt, t.RejectionReason = actorID, &at, reason
	}
}

// auditBranch sucursal bajo la que se registra cada paso: la recepción es del destino.
func auditBranch(t *entity.TransferRequest, to entity.TransferState) string {
	if to == entity.TransferReceived || to == entity.TransferDelivered {
		return t.DestinationBranchID
	}
	return t.SourceBranchID
}

func extraAfter(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		if k != "before" {
			out[k] = v
		}
	}
	return out
}

func transferSnapshot(t *entity.TransferRequest, extra map[string]any) map[string]any {
	m := map[string]any{
		"state":             t.State,
		"source":            t.SourceBranchID,
		"destination":       t.DestinationBranchID,
		"item_id":           t.ItemID,
		"quantity":          t.Quantity,
		"reserved_quantity": t.ReservedQuantity,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}
