package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var (
	_ repository.BranchRepository   = (*BranchRepo)(nil)
	_ repository.LocationRepository = (*LocationRepo)(nil)
)

// BranchRepo implementación del puerto BranchRepository sobre PostgreSQL.
type BranchRepo struct {
	q Querier
}

// NewBranchRepository construye el adaptador de persistencia para sucursales.
func NewBranchRepository(q Querier) *BranchRepo {
	return &BranchRepo{q: q}
}

// Create persiste una nueva sucursal.
func (r *BranchRepo) Create(ctx context.Context, b *entity.Branch) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO branches (id, code, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.Code, b.Name, b.Address, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: sucursal %s", domain.ErrDuplicate, b.Code)
		}
		return wrapErr("insert branch", err)
	}
	return nil
}

// GetByID obtiene una sucursal por ID.
func (r *BranchRepo) GetByID(ctx context.Context, id string) (*entity.Branch, error) {
	var b entity.Branch
	err := r.q.QueryRow(ctx, `
		SELECT id, code, name, address, created_at, updated_at
		FROM branches WHERE id = $1`, id,
	).Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get branch", err)
	}
	return &b, nil
}

// Update actualiza nombre y dirección.
func (r *BranchRepo) Update(ctx context.Context, b *entity.Branch) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE branches SET name = $2, address = $3, updated_at = $4
		WHERE id = $1`,
		b.ID, b.Name, b.Address, b.UpdatedAt,
	)
	if err != nil {
		return wrapErr("update branch", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: sucursal %s", domain.ErrNotFound, b.ID)
	}
	return nil
}

// List lista sucursales por código con paginación.
func (r *BranchRepo) List(ctx context.Context, limit, offset int) ([]*entity.Branch, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, code, name, address, created_at, updated_at
		FROM branches ORDER BY code LIMIT $1 OFFSET $2`,
		limitOrAll(limit), offset,
	)
	if err != nil {
		return nil, wrapErr("list branches", err)
	}
	defer rows.Close()
	var list []*entity.Branch
	for rows.Next() {
		var b entity.Branch
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, wrapErr("scan branch", err)
		}
		list = append(list, &b)
	}
	return list, wrapErr("list branches", rows.Err())
}

// LocationRepo ubicaciones dentro de cada sucursal.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de ubicaciones.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// Create persiste una ubicación; el código es único por sucursal.
func (r *LocationRepo) Create(ctx context.Context, l *entity.Location) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO locations (id, branch_id, code, name, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.BranchID, l.Code, l.Name, l.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ubicación %s", domain.ErrDuplicate, l.Code)
		}
		return wrapErr("insert location", err)
	}
	return nil
}

// GetByID obtiene una ubicación por ID.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	var l entity.Location
	err := r.q.QueryRow(ctx, `
		SELECT id, branch_id, code, name, created_at FROM locations WHERE id = $1`, id,
	).Scan(&l.ID, &l.BranchID, &l.Code, &l.Name, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get location", err)
	}
	return &l, nil
}

// ListByBranch ubicaciones de una sucursal ordenadas por código.
func (r *LocationRepo) ListByBranch(ctx context.Context, branchID string) ([]*entity.Location, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, branch_id, code, name, created_at
		FROM locations WHERE branch_id = $1 ORDER BY code`, branchID,
	)
	if err != nil {
		return nil, wrapErr("list locations", err)
	}
	defer rows.Close()
	var list []*entity.Location
	for rows.Next() {
		var l entity.Location
		if err := rows.Scan(&l.ID, &l.BranchID, &l.Code, &l.Name, &l.CreatedAt); err != nil {
			return nil, wrapErr("scan location", err)
		}
		list = append(list, &l)
	}
	return list, wrapErr("list locations", rows.Err())
}
