package entity

import "time"

// Location es un estante o bin opcional dentro de una sucursal.
type Location struct {
	ID        string
	BranchID  string
	Code      string // ej. "A-01"
	Name      string
	CreatedAt time.Time
}
