package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo solicitudes de traslado entre sucursales.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador de traslados.
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, source_branch_id, destination_branch_id, item_id, quantity, reserved_quantity, state, reason,
	requested_by, approved_by, picked_up_by, delivered_by, received_by, rejected_by, rejection_reason,
	created_at, approved_at, picked_up_at, delivered_at, received_at, rejected_at, updated_at`

// Create persiste la solicitud en REQUESTED.
func (r *TransferRepo) Create(ctx context.Context, t *entity.TransferRequest) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO transfer_requests (id, source_branch_id, destination_branch_id, item_id, quantity,
			reserved_quantity, state, reason, requested_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.SourceBranchID, t.DestinationBranchID, t.ItemID, t.Quantity,
		t.ReservedQuantity, string(t.State), t.Reason, t.RequestedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: traslado %s", domain.ErrDuplicate, t.ID)
		}
		return wrapErr("insert transfer", err)
	}
	return nil
}

// GetByID obtiene un traslado por ID.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM transfer_requests WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila del traslado; siempre antes que los grupos de stock.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM transfer_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransferRepo) get(ctx context.Context, query, id string) (*entity.TransferRequest, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get transfer", err)
	}
	return t, nil
}

// Update guarda estado, reserva y sellos de cada transición.
func (r *TransferRepo) Update(ctx context.Context, t *entity.TransferRequest) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE transfer_requests
		SET reserved_quantity = $2, state = $3,
		    approved_by = $4, picked_up_by = $5, delivered_by = $6, received_by = $7,
		    rejected_by = $8, rejection_reason = $9,
		    approved_at = $10, picked_up_at = $11, delivered_at = $12, received_at = $13, rejected_at = $14,
		    updated_at = $15
		WHERE id = $1`,
		t.ID, t.ReservedQuantity, string(t.State),
		nullable(t.ApprovedBy), nullable(t.PickedUpBy), nullable(t.DeliveredBy), nullable(t.ReceivedBy),
		nullable(t.RejectedBy), nullable(t.RejectionReason),
		t.ApprovedAt, t.PickedUpAt, t.DeliveredAt, t.ReceivedAt, t.RejectedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return wrapErr("update transfer", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: traslado %s", domain.ErrNotFound, t.ID)
	}
	return nil
}

// List filtra por sucursal (origen o destino), estado e item; más recientes primero.
func (r *TransferRepo) List(ctx context.Context, f entity.TransferFilter) ([]*entity.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE true`
	var args []any
	pos := 1
	if f.BranchID != "" {
		query += fmt.Sprintf(" AND (source_branch_id = $%d OR destination_branch_id = $%d)", pos, pos)
		args = append(args, f.BranchID)
		pos++
	}
	if f.State != "" {
		query += fmt.Sprintf(" AND state = $%d", pos)
		args = append(args, string(f.State))
		pos++
	}
	if f.ItemID != "" {
		query += fmt.Sprintf(" AND item_id = $%d", pos)
		args = append(args, f.ItemID)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limitOrAll(f.Limit), f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list transfers", err)
	}
	defer rows.Close()
	var list []*entity.TransferRequest
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, wrapErr("scan transfer", err)
		}
		list = append(list, t)
	}
	return list, wrapErr("list transfers", rows.Err())
}

func scanTransfer(row pgx.Row) (*entity.TransferRequest, error) {
	var t entity.TransferRequest
	var state string
	var approvedBy, pickedUpBy, deliveredBy, receivedBy, rejectedBy, rejection *string
	err := row.Scan(&t.ID, &t.SourceBranchID, &t.DestinationBranchID, &t.ItemID, &t.Quantity, &t.ReservedQuantity,
		&state, &t.Reason, &t.RequestedBy, &approvedBy, &pickedUpBy, &deliveredBy, &receivedBy, &rejectedBy, &rejection,
		&t.CreatedAt, &t.ApprovedAt, &t.PickedUpAt, &t.DeliveredAt, &t.ReceivedAt, &t.RejectedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.State = entity.TransferState(state)
	t.ApprovedBy = deref(approvedBy)
	t.PickedUpBy = deref(pickedUpBy)
	t.DeliveredBy = deref(deliveredBy)
	t.ReceivedBy = deref(receivedBy)
	t.RejectedBy = deref(rejectedBy)
	t.RejectionReason = deref(rejection)
	return &t, nil
}
