package entity

import "time"

// TransferState estado del ciclo de vida de un traslado.
type TransferState string

// Estados de traslado. RECEIVED y REJECTED son terminales.
const (
	TransferRequested TransferState = "REQUESTED"
	TransferApproved  TransferState = "APPROVED"
	TransferPickedUp  TransferState = "PICKED_UP"
	TransferDelivered TransferState = "DELIVERED"
	TransferReceived  TransferState = "RECEIVED"
	TransferRejected  TransferState = "REJECTED"
)

// Terminal indica si el estado no admite más transiciones.
func (s TransferState) Terminal() bool {
	return s == TransferReceived || s == TransferRejected
}

// Valid indica si el estado es conocido.
func (s TransferState) Valid() bool {
	switch s {
	case TransferRequested, TransferApproved, TransferPickedUp,
		TransferDelivered, TransferReceived, TransferRejected:
		return true
	}
	return false
}

// TransferRequest mueve unidades de un item entre dos sucursales.
type TransferRequest struct {
	ID                  string
	SourceBranchID      string
	DestinationBranchID string
	ItemID              string
	Quantity            int64
	ReservedQuantity    int64 // cantidad retenida en origen; 0 al liberar
	State               TransferState
	Reason              string
	RequestedBy         string
	ApprovedBy          string
	PickedUpBy          string
	DeliveredBy         string
	ReceivedBy          string
	RejectedBy          string
	RejectionReason     string
	CreatedAt           time.Time
	ApprovedAt          *time.Time
	PickedUpAt          *time.Time
	DeliveredAt         *time.Time
	ReceivedAt          *time.Time
	RejectedAt          *time.Time
	UpdatedAt           time.Time
}

// TransferFilter criterios para listar traslados.
type TransferFilter struct {
	BranchID string // origen o destino
	State    TransferState
	ItemID   string
	Limit    int
	Offset   int
}
