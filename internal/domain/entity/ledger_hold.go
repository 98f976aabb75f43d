package entity

import "time"

// LedgerHold suspende las escrituras sobre un grupo cuyo nivel no coincide con sus movimientos.
// Solo se levanta con una conciliación manual.
type LedgerHold struct {
	ItemID      string
	BranchID    string
	Reason      string
	DetectedAt  time.Time
	ClearedAt   *time.Time
	ClearedBy   string
	ClearReason string
}
