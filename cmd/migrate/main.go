// migrate aplica las migraciones SQL embebidas (goose) sobre la base configurada.
//
// Uso: go run ./cmd/migrate [-status]
// Lee DATABASE_URL o DB_HOST, DB_PORT, etc. igual que el resto de binarios.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/inventario-sucursales/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-sucursales/pkg/config"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

func main() {
	statusOnly := flag.Bool("status", false, "solo muestra la versión aplicada")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, App: "migrate"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.DB.ConnectionString()
	if !*statusOnly {
		if err := postgres.Migrate(ctx, dsn); err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
	}
	version, err := postgres.MigrationStatus(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("consultar versión de migraciones")
	}
	log.Info().Int64("version", version).Msg("esquema al día")
}
