package entity

import "time"

// Branch representa una sucursal física con su propio stock y personal.
// Es la unidad raíz de alcance para el resto de entidades.
type Branch struct {
	ID        string
	Code      string // código corto único (ej. "NORTE")
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
