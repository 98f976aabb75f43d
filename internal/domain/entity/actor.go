package entity

// Role de un actor dentro de la cadena de sucursales.
type Role string

// Roles válidos para Actor.
const (
	RoleCashier Role = "cashier"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// SystemUsername se registra en auditoría cuando la acción no tiene actor.
const SystemUsername = "SYSTEM"

// Actor es la identidad ya autenticada que invoca una operación del núcleo.
// La capa de peticiones resuelve el rol y la sucursal base antes de llamar.
type Actor struct {
	ID           string
	Username     string
	Role         Role
	HomeBranchID string
}

// IsZero indica que no hay actor (procesos internos).
func (a Actor) IsZero() bool {
	return a.ID == "" && a.Username == ""
}

// DisplayName devuelve el nombre a registrar en auditoría.
func (a Actor) DisplayName() string {
	if a.IsZero() {
		return SystemUsername
	}
	if a.Username != "" {
		return a.Username
	}
	return a.ID
}
