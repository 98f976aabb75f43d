package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

// BranchUseCase alta y consulta de sucursales y sus ubicaciones.
type BranchUseCase struct {
	branches  repository.BranchRepository
	locations repository.LocationRepository
	policy    access.Policy
}

// NewBranchUseCase construye el caso de uso.
func NewBranchUseCase(branches repository.BranchRepository, locations repository.LocationRepository, policy access.Policy) *BranchUseCase {
	return &BranchUseCase{branches: branches, locations: locations, policy: policy}
}

// Create crea una sucursal. Solo administradores.
func (uc *BranchUseCase) Create(ctx context.Context, actor entity.Actor, in dto.CreateBranchRequest) (*entity.Branch, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: solo un administrador crea sucursales", domain.ErrForbidden)
	}
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	b := &entity.Branch{
		ID:        uuid.New().String(),
		Code:      strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:      in.Name,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.branches.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByID obtiene una sucursal visible para el actor.
func (uc *BranchUseCase) GetByID(ctx context.Context, actor entity.Actor, id string) (*entity.Branch, error) {
	if err := access.Require(uc.policy, actor, id, access.ReadOnly); err != nil {
		return nil, err
	}
	b, err := uc.branches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, id)
	}
	return b, nil
}

// List devuelve las sucursales que el actor puede leer.
func (uc *BranchUseCase) List(ctx context.Context, actor entity.Actor, page dto.PageRequest) ([]*entity.Branch, error) {
	page.DefaultPage()
	list, err := uc.branches.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Branch, 0, len(list))
	for _, b := range list {
		if access.Resolve(uc.policy, actor, b.ID) >= access.ReadOnly {
			out = append(out, b)
		}
	}
	return out, nil
}

// CreateLocation agrega una ubicación (estante, bodega interna) a una sucursal.
func (uc *BranchUseCase) CreateLocation(ctx context.Context, actor entity.Actor, in dto.CreateLocationRequest) (*entity.Location, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	if err := access.Require(uc.policy, actor, in.BranchID, access.ReadWrite); err != nil {
		return nil, err
	}
	if b, err := uc.branches.GetByID(ctx, in.BranchID); err != nil {
		return nil, err
	} else if b == nil {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, in.BranchID)
	}
	l := &entity.Location{
		ID:        uuid.New().String(),
		BranchID:  in.BranchID,
		Code:      strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:      in.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.locations.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Locations lista las ubicaciones de una sucursal.
func (uc *BranchUseCase) Locations(ctx context.Context, actor entity.Actor, branchID string) ([]*entity.Location, error) {
	if err := access.Require(uc.policy, actor, branchID, access.ReadOnly); err != nil {
		return nil, err
	}
	return uc.locations.ListByBranch(ctx, branchID)
}
