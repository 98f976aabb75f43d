package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/application/ledger"
	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/inventory"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

// DefaultSaleReason motivo de auditoría cuando la caja no envía uno.
const DefaultSaleReason = "sale_create"

// Engine convierte carritos en ventas y revierte ventas con reembolsos.
type Engine struct {
	txRunner ports.TxRunner
	store    repository.Repos
	ledger   *ledger.Ledger
	trail    *audit.Trail
	policy   access.Policy
	log      *logger.Logger
	metrics  ports.Metrics
	now      func() time.Time
}

// NewEngine construye el motor de caja.
func NewEngine(
	txRunner ports.TxRunner,
	store repository.Repos,
	ldg *ledger.Ledger,
	trail *audit.Trail,
	policy access.Policy,
	log *logger.Logger,
	metrics ports.Metrics,
) *Engine {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Engine{
		txRunner: txRunner,
		store:    store,
		ledger:   ldg,
		trail:    trail,
		policy:   policy,
		log:      log.Component("checkout"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Checkout valida el carrito, descuenta el stock de todas las líneas y guarda la venta en una sola
// unidad atómica. Cualquier fallo revierte todo: nunca queda un descuento parcial visible.
func (e *Engine) Checkout(ctx context.Context, actor entity.Actor, in dto.CheckoutRequest) (sale *entity.Sale, err error) {
	defer func() { e.metrics.ObserveCheckout(domain.Code(err)) }()

	// 1) Validaciones de entrada, antes de tomar cualquier bloqueo
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	reason := in.Reason
	if strings.TrimSpace(reason) == "" {
		reason = DefaultSaleReason
	}
	if reason, err = audit.NormalizeReason(reason); err != nil {
		return nil, err
	}
	if in.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: descuento negativo", domain.ErrInvalidInput)
	}
	if err := access.Require(e.policy, actor, in.BranchID, access.ReadWrite); err != nil {
		return nil, err
	}

	// 2) Precios y costos congelados (solo lectura, fuera de la tx)
	ids := make([]string, 0, len(in.Lines))
	for _, l := range in.Lines {
		ids = append(ids, l.ItemID)
	}
	items, err := e.store.Items.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	sale = &entity.Sale{
		ID:        uuid.New().String(),
		BranchID:  in.BranchID,
		CashierID: actor.ID,
		Discount:  in.Discount,
		CreatedAt: now,
	}
	locations := make([]string, 0, len(in.Lines))
	for _, l := range in.Lines {
		locations = append(locations, l.LocationID)
	}
	if err := ledger.CheckLocations(ctx, e.store.Locations, in.BranchID, locations...); err != nil {
		return nil, err
	}
	requested := make(map[string]int64)
	for i, l := range in.Lines {
		item, ok := items[l.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, l.ItemID)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: precio negativo para %s", domain.ErrInvalidInput, item.SKU)
		}
		subtotal := item.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
		sale.Lines = append(sale.Lines, entity.SaleLine{
			LineNo:     i + 1,
			ItemID:     l.ItemID,
			LocationID: l.LocationID,
			Quantity:   l.Quantity,
			UnitPrice:  item.UnitPrice,
			UnitCost:   item.UnitCost,
			Subtotal:   subtotal,
		})
		sale.Subtotal = sale.Subtotal.Add(subtotal)
		requested[l.ItemID] += l.Quantity
	}
	if sale.Discount.GreaterThan(sale.Subtotal) {
		return nil, fmt.Errorf("%w: el descuento supera el subtotal", domain.ErrInvalidInput)
	}
	sale.Total = sale.Subtotal.Sub(sale.Discount)

	keys := make([]entity.GroupKey, 0, len(requested))
	for itemID := range requested {
		keys = append(keys, entity.GroupKey{ItemID: itemID, BranchID: in.BranchID})
	}
	keys = inventory.OrderGroups(keys)

	err = e.txRunner.Run(ctx, func(tx repository.Repos) error {
		// 3) Bloqueos en orden ascendente y verificación contra lo disponible
		groups, err := e.ledger.LockAll(ctx, tx, keys)
		if err != nil {
			return err
		}
		locked := orderedGroups(keys, groups)
		before := ledger.Snapshot(locked...)
		for _, k := range keys {
			g := groups[k]
			if want := requested[k.ItemID]; want > g.Available() {
				return &domain.InsufficientStockError{
					ItemID: k.ItemID, BranchID: k.BranchID, Requested: want, Available: g.Available(),
				}
			}
		}

		// 4) Descuento por línea: primero las que indican ubicación, luego las de nivel sucursal
		mv := ledger.MovementInput{Kind: entity.MovementKindSale, Reason: reason, ActorID: actor.ID, SaleID: sale.ID}
		for _, line := range linesByLocationFirst(sale.Lines) {
			g := groups[entity.GroupKey{ItemID: line.ItemID, BranchID: in.BranchID}]
			if line.LocationID != "" {
				if _, err := e.ledger.CommitDecrement(ctx, tx, g, line.LocationID, line.Quantity, mv); err != nil {
					return err
				}
				continue
			}
			if _, err := e.ledger.Drain(ctx, tx, g, line.Quantity, mv); err != nil {
				return err
			}
		}

		// 5) Venta y una entrada de auditoría para todo el carrito
		if err := tx.Sales.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		_, err = e.trail.Record(ctx, tx.Audit, audit.Entry{
			Actor:      actor,
			BranchID:   in.BranchID,
			Action:     entity.ActionSaleCreate,
			ObjectType: "sale",
			ObjectID:   sale.ID,
			Reason:     reason,
			Before:     map[string]any{"stock": before},
			After: map[string]any{
				"stock":    ledger.Snapshot(locked...),
				"total":    sale.Total.StringFixed(2),
				"units":    sale.TotalUnits(),
				"lines":    len(sale.Lines),
				"refunded": false,
			},
		})
		return err
	})
	if err != nil {
		e.logFailure("checkout", in.BranchID, err)
		return nil, err
	}
	e.log.Debug().Str("sale_id", sale.ID).Str("branch_id", sale.BranchID).Int64("units", sale.TotalUnits()).Msg("venta registrada")
	return sale, nil
}

// Refund reintegra al stock las claves exactas que descontó la venta y marca is_refunded.
// Si la venta ya estaba reembolsada no escribe nada y devuelve AlreadyRefunded=true sin error.
func (e *Engine) Refund(ctx context.Context, actor entity.Actor, saleID, reason string) (res *dto.RefundResult, err error) {
	outcome := ""
	defer func() {
		if outcome == "" {
			outcome = domain.Code(err)
		}
		e.metrics.ObserveRefund(outcome)
	}()

	reason, err = audit.NormalizeReason(reason)
	if err != nil {
		return nil, err
	}
	sale, err := e.store.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, saleID)
	}
	if err := access.Require(e.policy, actor, sale.BranchID, access.ReadWrite); err != nil {
		return nil, err
	}

	res = &dto.RefundResult{SaleID: saleID}
	err = e.txRunner.Run(ctx, func(tx repository.Repos) error {
		// La marca se verifica y cambia dentro de la misma unidad que el reintegro.
		locked, err := tx.Sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("%w: venta %s", domain.ErrNotFound, saleID)
		}
		if locked.IsRefunded {
			return domain.ErrAlreadyRefunded
		}

		movs, err := tx.Movements.ListBySale(ctx, saleID)
		if err != nil {
			return err
		}
		var sold []*entity.StockMovement
		var keys []entity.GroupKey
		for _, m := range movs {
			if m.Kind == entity.MovementKindSale && m.Delta < 0 {
				sold = append(sold, m)
				keys = append(keys, m.Key().Group())
			}
		}
		keys = inventory.OrderGroups(keys)
		groups, err := e.ledger.LockAll(ctx, tx, keys)
		if err != nil {
			return err
		}
		touched := orderedGroups(keys, groups)
		before := ledger.Snapshot(touched...)

		for _, m := range sold {
			in := ledger.MovementInput{
				Kind: entity.MovementKindRefund, Reason: reason, ActorID: actor.ID, SaleID: saleID, LinkedMovementID: m.ID,
			}
			if _, err := e.ledger.Increment(ctx, tx, groups[m.Key().Group()], m.LocationID, -m.Delta, in); err != nil {
				return err
			}
			res.RestockedUnits += -m.Delta
		}

		at := e.now().UTC()
		locked.RefundedAt = &at
		locked.RefundedBy = actor.ID
		locked.RefundReason = reason
		if err := tx.Sales.MarkRefunded(ctx, locked); err != nil {
			return err
		}
		_, err = e.trail.Record(ctx, tx.Audit, audit.Entry{
			Actor:      actor,
			BranchID:   locked.BranchID,
			Action:     entity.ActionSaleRefund,
			ObjectType: "sale",
			ObjectID:   saleID,
			Reason:     reason,
			Before:     map[string]any{"stock": before, "refunded": false},
			After:      map[string]any{"stock": ledger.Snapshot(touched...), "refunded": true},
		})
		return err
	})
	if errors.Is(err, domain.ErrAlreadyRefunded) {
		outcome = domain.Code(err)
		res.AlreadyRefunded = true
		res.RestockedUnits = 0
		return res, nil
	}
	if err != nil {
		e.logFailure("refund", sale.BranchID, err)
		return nil, err
	}
	return res, nil
}

// Sale consulta una venta con alcance de lectura.
func (e *Engine) Sale(ctx context.Context, actor entity.Actor, saleID string) (*entity.Sale, error) {
	sale, err := e.store.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, saleID)
	}
	if err := access.Require(e.policy, actor, sale.BranchID, access.ReadOnly); err != nil {
		return nil, err
	}
	return sale, nil
}

// Sales lista las ventas de una sucursal, más recientes primero.
func (e *Engine) Sales(ctx context.Context, actor entity.Actor, branchID string, page dto.PageRequest) ([]*entity.Sale, error) {
	if err := access.Require(e.policy, actor, branchID, access.ReadOnly); err != nil {
		return nil, err
	}
	page.DefaultPage()
	return e.store.Sales.ListByBranch(ctx, branchID, page.Limit, page.Offset)
}

func (e *Engine) logFailure(op, branchID string, err error) {
	ev := e.log.Debug()
	switch {
	case domain.IsRetryable(err):
		ev = e.log.Warn()
	case errors.Is(err, domain.ErrInconsistentLedger):
		ev = e.log.Error()
	}
	ev.Err(err).Str("op", op).Str("branch_id", branchID).Str("code", domain.Code(err)).Msg("operación de caja rechazada")
}

func orderedGroups(keys []entity.GroupKey, groups map[entity.GroupKey]*ledger.Group) []*ledger.Group {
	out := make([]*ledger.Group, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}

func linesByLocationFirst(lines []entity.SaleLine) []entity.SaleLine {
	out := append([]entity.SaleLine(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LocationID != "" && out[j].LocationID == ""
	})
	return out
}
