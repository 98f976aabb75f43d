package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED + SELECT FOR UPDATE).
// Cada transacción fija lock_timeout: una espera más larga aborta la unidad con domain.ErrLockTimeout.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(tx repository.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return wrapErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		ms := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", ms); err != nil {
			return wrapErr("set lock_timeout", err)
		}
	}

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return wrapErr("commit transaction", err)
	}
	return nil
}

// NewRepos agrupa los repositorios sobre q (pool para lecturas, tx para una unidad atómica).
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Stock:        NewStockRepository(q),
		Movements:    NewStockMovementRepository(q),
		Reservations: NewReservationRepository(q),
		Holds:        NewLedgerHoldRepository(q),
		Sales:        NewSaleRepository(q),
		Transfers:    NewTransferRepository(q),
		Audit:        NewAuditLogRepository(q),
		Items:        NewItemRepository(q),
		Locations:    NewLocationRepository(q),
	}
}
