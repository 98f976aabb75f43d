// Package app arma el núcleo de inventario: almacenamiento, libro, servicios y métricas.
package app

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-sucursales/internal/application/analytics"
	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/checkout"
	"github.com/jhoicas/inventario-sucursales/internal/application/inventory"
	"github.com/jhoicas/inventario-sucursales/internal/application/ledger"
	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
	"github.com/jhoicas/inventario-sucursales/internal/application/transfer"
	"github.com/jhoicas/inventario-sucursales/internal/application/usecase"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-sucursales/pkg/config"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

// App expone los servicios del núcleo ya cableados.
type App struct {
	Log     *logger.Logger
	Metrics *metrics.Recorder
	Policy  access.Policy

	Ledger        *ledger.Ledger
	Audit         *audit.Trail
	Checkout      *checkout.Engine
	Transfers     *transfer.Service
	Adjustments   *inventory.AdjustmentUseCase
	Replenishment *inventory.ReplenishmentUseCase
	Reconcile     *inventory.ReconciliationUseCase
	Branches      *usecase.BranchUseCase
	Items         *usecase.ItemUseCase
	Reports       *analytics.SalesReportUseCase

	close func()
}

type storage struct {
	tx        ports.TxRunner
	repos     repository.Repos
	branches  repository.BranchRepository
	locations repository.LocationRepository
	close     func()
}

// New abre el almacenamiento indicado por cfg.Store.Driver y construye los servicios.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	policy, err := policyFrom(cfg.Access)
	if err != nil {
		return nil, err
	}
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	rec := metrics.New("inventario")
	trail := audit.NewTrail(st.repos.Audit, policy)
	ldg := ledger.New(st.repos, st.tx, trail, log, rec)

	a := &App{
		Log:           log,
		Metrics:       rec,
		Policy:        policy,
		Ledger:        ldg,
		Audit:         trail,
		Checkout:      checkout.NewEngine(st.tx, st.repos, ldg, trail, policy, log, rec),
		Transfers:     transfer.NewService(st.tx, st.repos, ldg, trail, policy, log, rec),
		Adjustments:   inventory.NewAdjustmentUseCase(st.tx, st.repos, ldg, trail, policy, log, rec),
		Replenishment: inventory.NewReplenishmentUseCase(st.repos, policy),
		Reconcile:     inventory.NewReconciliationUseCase(ldg, policy, log),
		Branches:      usecase.NewBranchUseCase(st.branches, st.locations, policy),
		Items:         usecase.NewItemUseCase(st.tx, st.repos.Items, trail),
		Reports:       analytics.NewSalesReportUseCase(st.repos.Sales, st.repos.Items, policy),
		close:         st.close,
	}
	log.Info().
		Str("store", cfg.Store.Driver).
		Dur("lock_timeout", cfg.Ledger.LockTimeout).
		Msg("núcleo de inventario listo")
	return a, nil
}

// Close libera el pool de conexiones, si lo hay.
func (a *App) Close() {
	if a.close != nil {
		a.close()
	}
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	switch cfg.Store.Driver {
	case "memory":
		s := memory.New(cfg.Ledger.LockTimeout)
		return &storage{tx: s, repos: s.Repos(), branches: s.Branches(), locations: s.Locations(), close: func() {}}, nil
	case "postgres":
		if cfg.Store.MigrationsAuto {
			if err := postgres.Migrate(ctx, cfg.DB.ConnectionString()); err != nil {
				return nil, err
			}
			log.Info().Msg("migraciones aplicadas")
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		return &storage{
			tx:        postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
			repos:     postgres.NewRepos(pool),
			branches:  postgres.NewBranchRepository(pool),
			locations: postgres.NewLocationRepository(pool),
			close:     pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("STORE_DRIVER no soportado: %q", cfg.Store.Driver)
}

func policyFrom(cfg config.AccessConfig) (access.Policy, error) {
	manager, err := access.ParseScope(cfg.ManagerCrossBranch)
	if err != nil {
		return access.Policy{}, fmt.Errorf("ACCESS_MANAGER_CROSS_BRANCH: %w", err)
	}
	admin, err := access.ParseScope(cfg.AdminCrossBranch)
	if err != nil {
		return access.Policy{}, fmt.Errorf("ACCESS_ADMIN_CROSS_BRANCH: %w", err)
	}
	return access.Policy{ManagerCrossBranch: manager, AdminCrossBranch: admin}, nil
}
