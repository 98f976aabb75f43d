package entity

import (
	"encoding/json"
	"time"
)

// Acciones registradas en la bitácora.
const (
	ActionSaleCreate      = "sale.create"
	ActionSaleRefund      = "sale.refund"
	ActionTransferRequest = "transfer.request"
	ActionTransferApprove = "transfer.approve"
	ActionTransferPickUp  = "transfer.pick_up"
	ActionTransferDeliver = "transfer.deliver"
	ActionTransferReceive = "transfer.receive"
	ActionTransferReject  = "transfer.reject"
	ActionStockAdjustment = "stock.adjustment"
	ActionStockRelocation = "stock.relocation"
	ActionLedgerFreeze    = "ledger.freeze"
	ActionLedgerUnfreeze  = "ledger.unfreeze"
	ActionItemPriceChange = "item.price_change"
)

// AuditLog es una entrada inmutable de la bitácora con instantáneas antes/después.
type AuditLog struct {
	ID            int64 // orden de anexión
	ActorID       string
	ActorUsername string
	BranchID      string
	Action        string
	ObjectType    string
	ObjectID      string
	Reason        string
	Before        json.RawMessage
	After         json.RawMessage
	CreatedAt     time.Time
}

// AuditFilter criterios de consulta de la bitácora.
type AuditFilter struct {
	BranchID   string
	ActorID    string
	Action     string
	ObjectType string
	ObjectID   string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
