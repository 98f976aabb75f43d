// reconcile reconstruye cada grupo (item, sucursal) desde sus movimientos y lo compara
// con lo registrado. Un grupo que no cuadra queda suspendido hasta la conciliación manual.
//
// Uso: go run ./cmd/reconcile [-branch ID] [-workers N]
// Imprime el resumen en JSON por stdout; los logs van a stderr.
// Sale con código 2 si hay grupos inconsistentes o suspendidos.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/inventario-sucursales/internal/app"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/pkg/config"
	"github.com/jhoicas/inventario-sucursales/pkg/logger"
)

func main() {
	branchID := flag.String("branch", "", "sucursal a conciliar (vacío = todas)")
	workers := flag.Int("workers", 4, "verificaciones en paralelo")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, App: "reconcile", Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar núcleo")
	}
	defer a.Close()

	operator := entity.Actor{ID: "reconcile", Username: "reconcile", Role: entity.RoleAdmin, HomeBranchID: *branchID}
	summary, err := a.Reconcile.Run(ctx, operator, *branchID, *workers)
	if err != nil {
		log.Error().Err(err).Msg("conciliación")
		a.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		log.Error().Err(err).Msg("escribir resumen")
	}
	if len(summary.Inconsistent) > 0 || len(summary.Holds) > 0 {
		a.Close()
		os.Exit(2)
	}
}
