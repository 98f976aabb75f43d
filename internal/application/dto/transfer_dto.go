package dto

// CreateTransferRequest solicitud de traslado entre sucursales.
type CreateTransferRequest struct {
	SourceBranchID      string `json:"source_branch_id" validate:"required"`
	DestinationBranchID string `json:"destination_branch_id" validate:"required,nefield=SourceBranchID"`
	ItemID              string `json:"item_id" validate:"required"`
	Quantity            int64  `json:"quantity" validate:"gt=0"`
	Reason              string `json:"reason"`
}
