package entity

import "time"

// Reservation es una retención lógica sobre la cantidad disponible de un grupo.
// No es un movimiento: reduce lo disponible pero no lo registrado.
type Reservation struct {
	ID         int64
	ItemID     string
	BranchID   string
	Quantity   int64
	TransferID string
	CreatedAt  time.Time
	ReleasedAt *time.Time
}

// Active indica si la reserva todavía retiene stock.
func (r *Reservation) Active() bool {
	return r.ReleasedAt == nil
}
