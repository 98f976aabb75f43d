package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrInvalidTransition  = errors.New("transición de estado inválida")
	ErrAlreadyRefunded    = errors.New("la venta ya fue reembolsada")
	ErrMissingReason      = errors.New("el motivo es obligatorio")
	ErrInvalidQuantity    = errors.New("la cantidad debe ser mayor que cero")
	ErrLockTimeout        = errors.New("tiempo de espera de bloqueo agotado")
	ErrInconsistentLedger = errors.New("libro de stock inconsistente")
)

// InsufficientStockError detalla la clave y las cantidades que causaron el rechazo.
type InsufficientStockError struct {
	ItemID     string
	BranchID   string
	LocationID string
	Requested  int64
	Available  int64
}

func (e *InsufficientStockError) Error() string {
	key := e.ItemID + "@" + e.BranchID
	if e.LocationID != "" {
		key += "/" + e.LocationID
	}
	return fmt.Sprintf("%s: %s solicitado=%d disponible=%d", ErrInsufficientStock, key, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidTransitionError indica el estado actual y el destino rechazado.
type InvalidTransitionError struct {
	TransferID string
	From       string
	To         string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: traslado %s de %s a %s", ErrInvalidTransition, e.TransferID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// InconsistentLedgerError se produce cuando el nivel registrado no coincide con la suma de movimientos.
// Las escrituras sobre el grupo quedan suspendidas hasta la conciliación manual.
type InconsistentLedgerError struct {
	ItemID     string
	BranchID   string
	LocationID string
	Recorded   int64
	Replayed   int64
}

func (e *InconsistentLedgerError) Error() string {
	if e.Recorded == 0 && e.Replayed == 0 {
		return fmt.Sprintf("%s: %s@%s suspendido", ErrInconsistentLedger, e.ItemID, e.BranchID)
	}
	return fmt.Sprintf("%s: %s@%s/%s registrado=%d reconstruido=%d",
		ErrInconsistentLedger, e.ItemID, e.BranchID, e.LocationID, e.Recorded, e.Replayed)
}

func (e *InconsistentLedgerError) Unwrap() error { return ErrInconsistentLedger }

// IsRetryable indica si la operación completa puede reintentarse desde cero.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// Code devuelve una etiqueta estable para métricas y logs.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrAlreadyRefunded):
		return "already_refunded"
	case errors.Is(err, ErrMissingReason):
		return "missing_reason"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, ErrInconsistentLedger):
		return "inconsistent_ledger"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
