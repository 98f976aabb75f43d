package transfer

import "github.com/jhoicas/inventario-sucursales/internal/domain/entity"

// next estados alcanzables desde cada estado. Ninguna transición salta un paso ni retrocede.
var next = map[entity.TransferState][]entity.TransferState{
	entity.TransferRequested: {entity.TransferApproved, entity.TransferRejected},
	entity.TransferApproved:  {entity.TransferPickedUp, entity.TransferRejected},
	entity.TransferPickedUp:  {entity.TransferDelivered},
	entity.TransferDelivered: {entity.TransferReceived},
}

// CanTransition indica si from → to está permitido.
func CanTransition(from, to entity.TransferState) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// actionFor acción de auditoría de cada estado destino.
func actionFor(to entity.TransferState) string {
	switch to {
	case entity.TransferApproved:
		return entity.ActionTransferApprove
	case entity.TransferPickedUp:
		return entity.ActionTransferPickUp
	case entity.TransferDelivered:
		return entity.ActionTransferDeliver
	case entity.TransferReceived:
		return entity.ActionTransferReceive
	case entity.TransferRejected:
		return entity.ActionTransferReject
	}
	return ""
}
