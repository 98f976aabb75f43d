package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-sucursales/internal/application/audit"
	"github.com/jhoicas/inventario-sucursales/internal/application/checkout"
	"github.com/jhoicas/inventario-sucursales/internal/application/dto"
	"github.com/jhoicas/inventario-sucursales/internal/application/inventory"
	"github.com/jhoicas/inventario-sucursales/internal/application/ledger"
	"github.com/jhoicas/inventario-sucursales/internal/domain"
	"github.com/jhoicas/inventario-sucursales/internal/domain/access"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-sucursales/pkg/config"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

var admin = entity.Actor{ID: "u-admin", Username: "admin", Role: entity.RoleAdmin}

// openPool migra y conecta contra TEST_DATABASE_URL; sin ella el test se omite.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	require.NoError(t, postgres.Migrate(ctx, dsn))
	version, err := postgres.MigrationStatus(ctx, dsn)
	require.NoError(t, err)
	require.GreaterOrEqual(t, version, int64(1))

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

type pgEnv struct {
	pool   *pgxpool.Pool
	runner *postgres.TxRunner
	ledger *ledger.Ledger
	engine *checkout.Engine
	adjust *inventory.AdjustmentUseCase
	item   string
	branch string
}

// bin es el ID de catálogo de una ubicación de la sucursal del test.
func (e *pgEnv) bin(code string) string { return code + "-" + e.branch[:8] }

func newPGEnv(t *testing.T, lockTimeout time.Duration) *pgEnv {
	t.Helper()
	pool := openPool(t)
	runner := postgres.NewTxRunner(pool, lockTimeout)
	repos := postgres.NewRepos(pool)
	policy := access.DefaultPolicy()
	log := logger.Nop()
	trail := audit.NewTrail(repos.Audit, policy)
	ldg := ledger.New(repos, runner, trail, log, nil)

	e := &pgEnv{
		pool:   pool,
		runner: runner,
		ledger: ldg,
		engine: checkout.NewEngine(runner, repos, ldg, trail, policy, log, nil),
		adjust: inventory.NewAdjustmentUseCase(runner, repos, ldg, trail, policy, log, nil),
		item:   uuid.NewString(),
		branch: uuid.NewString(),
	}
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repos.Items.Create(ctx, &entity.Item{
		ID: e.item, SKU: "IT-" + e.item[:8], Name: "Pastillas de freno",
		UnitPrice: decimal.NewFromInt(120), UnitCost: decimal.NewFromInt(70), CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, postgres.NewBranchRepository(pool).Create(ctx, &entity.Branch{
		ID: e.branch, Code: "SUC-" + e.branch[:8], Name: "Sucursal de prueba", CreatedAt: now, UpdatedAt: now,
	}))
	for _, code := range []string{"A-01", "N-01", "N-02", "N-03", "N-04", "N-05"} {
		require.NoError(t, repos.Locations.Create(ctx, &entity.Location{ID: e.bin(code), BranchID: e.branch, Code: code, CreatedAt: now}))
	}
	return e
}

func (e *pgEnv) seed(t *testing.T, location string, qty int64) {
	t.Helper()
	_, err := e.adjust.Adjust(context.Background(), admin, dto.AdjustmentRequest{
		ItemID: e.item, BranchID: e.branch, LocationID: location, Delta: qty, Reason: "carga inicial",
	})
	require.NoError(t, err)
}

func TestPostgres_CheckoutYReembolso(t *testing.T) {
	e := newPGEnv(t, 2*time.Second)
	e.seed(t, "", 4)
	e.seed(t, e.bin("A-01"), 6)
	ctx := context.Background()

	sale, err := e.engine.Checkout(ctx, admin, dto.CheckoutRequest{
		BranchID: e.branch,
		Lines:    []dto.CheckoutLine{{ItemID: e.item, Quantity: 7}},
	})
	require.NoError(t, err)
	n, err := e.ledger.RecordedQuantity(ctx, e.item, e.branch)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := e.engine.Sale(ctx, admin, sale.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(840)))

	res, err := e.engine.Refund(ctx, admin, sale.ID, "cliente devuelve")
	require.NoError(t, err)
	assert.False(t, res.AlreadyRefunded)
	res, err = e.engine.Refund(ctx, admin, sale.ID, "cliente devuelve")
	require.NoError(t, err)
	assert.True(t, res.AlreadyRefunded)

	levels, err := e.ledger.Levels(ctx, e.item, e.branch)
	require.NoError(t, err)
	byLoc := map[string]int64{}
	for _, lv := range levels {
		byLoc[lv.Key.LocationID] = lv.Quantity
	}
	assert.Equal(t, map[string]int64{"": 4, e.bin("A-01"): 6}, byLoc)

	report, err := e.ledger.Verify(ctx, e.item, e.branch)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestPostgres_ConcurrenciaNoSobrevende(t *testing.T) {
	e := newPGEnv(t, 5*time.Second)
	e.seed(t, "", 10)
	ctx := context.Background()

	var g errgroup.Group
	results := make([]error, 2)
	for i := range results {
		g.Go(func() error {
			_, results[i] = e.engine.Checkout(ctx, admin, dto.CheckoutRequest{
				BranchID: e.branch,
				Lines:    []dto.CheckoutLine{{ItemID: e.item, Quantity: 6}},
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 1, ok)
	n, err := e.ledger.RecordedQuantity(ctx, e.item, e.branch)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestPostgres_AjustesConcurrentesEnUbicacionNueva(t *testing.T) {
	e := newPGEnv(t, 5*time.Second)
	ctx := context.Background()

	for _, code := range []string{"N-01", "N-02", "N-03", "N-04", "N-05"} {
		loc := e.bin(code)
		var g errgroup.Group
		for _, qty := range []int64{5, 3} {
			g.Go(func() error {
				_, err := e.adjust.Adjust(ctx, admin, dto.AdjustmentRequest{
					ItemID: e.item, BranchID: e.branch, LocationID: loc, Delta: qty, Reason: "recepción",
				})
				return err
			})
		}
		require.NoError(t, g.Wait())

		levels, err := e.ledger.Levels(ctx, e.item, e.branch)
		require.NoError(t, err)
		byLoc := map[string]int64{}
		for _, lv := range levels {
			byLoc[lv.Key.LocationID] = lv.Quantity
		}
		assert.Equal(t, int64(8), byLoc[loc], code)
	}

	report, err := e.ledger.Verify(ctx, e.item, e.branch)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	n, err := e.ledger.RecordedQuantity(ctx, e.item, e.branch)
	require.NoError(t, err)
	assert.Equal(t, int64(40), n)
}

func TestPostgres_NivelSinUbicacionDeCatalogo(t *testing.T) {
	e := newPGEnv(t, time.Second)
	ctx := context.Background()

	err := e.runner.Run(ctx, func(tx repository.Repos) error {
		return tx.Stock.Save(ctx, &entity.StockLevel{
			Key:      entity.StockKey{ItemID: e.item, BranchID: e.branch, LocationID: "no-existe"},
			Quantity: 7, UpdatedAt: time.Now().UTC(),
		})
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPostgres_EsperaDeBloqueoAcotada(t *testing.T) {
	e := newPGEnv(t, 200*time.Millisecond)
	e.seed(t, "", 1)
	ctx := context.Background()
	key := entity.GroupKey{ItemID: e.item, BranchID: e.branch}

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = e.runner.Run(ctx, func(tx repository.Repos) error {
			if _, err := tx.Stock.LockGroup(ctx, key); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	err := e.runner.Run(ctx, func(tx repository.Repos) error {
		_, err := e.ledger.Lock(ctx, tx, key)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, domain.IsRetryable(err))
}

func TestPostgres_BitacoraSoloAnexion(t *testing.T) {
	e := newPGEnv(t, time.Second)
	e.seed(t, "", 1)
	ctx := context.Background()

	_, err := e.pool.Exec(ctx, `UPDATE audit_logs SET reason = 'x' WHERE branch_id = $1`, e.branch)
	assert.Error(t, err)
	_, err = e.pool.Exec(ctx, `DELETE FROM stock_movements WHERE item_id = $1`, e.item)
	assert.Error(t, err)
}
