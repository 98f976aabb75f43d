// Package access resuelve qué puede hacer un actor sobre una sucursal.
// No guarda estado: es una función pura del rol, la sucursal base y la sucursal pedida.
package access

import (
	"fmt"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// Scope nivel de acceso sobre una sucursal.
type Scope int

const (
	Denied Scope = iota
	ReadOnly
	ReadWrite
)

func (s Scope) String() string {
	switch s {
	case ReadOnly:
		return "read"
	case ReadWrite:
		return "write"
	default:
		return "none"
	}
}

// ParseScope interpreta los valores de configuración none|read|write.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "none", "denied", "":
		return Denied, nil
	case "read", "readonly":
		return ReadOnly, nil
	case "write", "readwrite":
		return ReadWrite, nil
	}
	return Denied, fmt.Errorf("%w: alcance desconocido %q", domain.ErrInvalidInput, s)
}

// Policy define el alcance fuera de la sucursal base para gerentes y administradores.
type Policy struct {
	ManagerCrossBranch Scope
	AdminCrossBranch   Scope
}

// DefaultPolicy gerentes consultan otras sucursales; administradores operan en todas.
func DefaultPolicy() Policy {
	return Policy{ManagerCrossBranch: ReadOnly, AdminCrossBranch: ReadWrite}
}

// Resolve devuelve el alcance del actor sobre branchID.
func Resolve(p Policy, actor entity.Actor, branchID string) Scope {
	if branchID == "" || actor.ID == "" {
		return Denied
	}
	home := actor.HomeBranchID != "" && actor.HomeBranchID == branchID
	switch actor.Role {
	case entity.RoleCashier:
		if home {
			return ReadWrite
		}
		return Denied
	case entity.RoleManager:
		if home {
			return ReadWrite
		}
		return p.ManagerCrossBranch
	case entity.RoleAdmin:
		if home {
			return ReadWrite
		}
		return p.AdminCrossBranch
	default:
		return Denied
	}
}

// Require devuelve domain.ErrForbidden si el alcance del actor es menor que need.
func Require(p Policy, actor entity.Actor, branchID string, need Scope) error {
	if got := Resolve(p, actor, branchID); got < need {
		return fmt.Errorf("%w: %s requiere %s sobre la sucursal %s", domain.ErrForbidden, actor.DisplayName(), need, branchID)
	}
	return nil
}

// RequireAny exige el alcance need sobre al menos una de las sucursales.
func RequireAny(p Policy, actor entity.Actor, need Scope, branchIDs ...string) error {
	for _, b := range branchIDs {
		if Resolve(p, actor, b) >= need {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requiere %s sobre %v", domain.ErrForbidden, actor.DisplayName(), need, branchIDs)
}

// CrossBranch devuelve el alcance del actor sobre sucursales distintas a la suya.
func CrossBranch(p Policy, actor entity.Actor) Scope {
	switch actor.Role {
	case entity.RoleManager:
		return p.ManagerCrossBranch
	case entity.RoleAdmin:
		return p.AdminCrossBranch
	default:
		return Denied
	}
}
