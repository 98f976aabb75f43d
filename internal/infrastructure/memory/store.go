// Package memory implementa los puertos de persistencia en proceso, para un solo nodo y para tests.
// Los bloqueos son mutex por clave con espera acotada; las escrituras de una unidad se acumulan
// aparte y se publican juntas al confirmar.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/application/ports"
	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
	"github.com/jhoicas/inventario-sucursales/internal/domain/repository"
)

var _ ports.TxRunner = (*Store)(nil)

// DefaultLockTimeout espera máxima por un bloqueo si no se configura otra.
const DefaultLockTimeout = 3 * time.Second

type state struct {
	branches     map[string]entity.Branch
	items        map[string]entity.Item
	locations    map[string]entity.Location
	levels       map[entity.StockKey]entity.StockLevel
	movements    []entity.StockMovement
	reservations map[int64]entity.Reservation
	holds        map[entity.GroupKey]entity.LedgerHold
	holdHistory  []entity.LedgerHold
	sales        map[string]entity.Sale
	transfers    map[string]entity.TransferRequest
	audit        []entity.AuditLog
}

// Store datos confirmados más la tabla de bloqueos.
type Store struct {
	mu          sync.RWMutex
	data        *state
	locks       *lockTable
	lockTimeout time.Duration

	seqMovement    atomic.Int64
	seqAudit       atomic.Int64
	seqReservation atomic.Int64
}

// New construye un store vacío. lockTimeout <= 0 usa DefaultLockTimeout.
func New(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		data: &state{
			branches:     make(map[string]entity.Branch),
			items:        make(map[string]entity.Item),
			locations:    make(map[string]entity.Location),
			levels:       make(map[entity.StockKey]entity.StockLevel),
			reservations: make(map[int64]entity.Reservation),
			holds:        make(map[entity.GroupKey]entity.LedgerHold),
			sales:        make(map[string]entity.Sale),
			transfers:    make(map[string]entity.TransferRequest),
		},
		locks:       newLockTable(),
		lockTimeout: lockTimeout,
	}
}

// Repos devuelve repositorios sobre los datos confirmados, para lecturas y para sembrar catálogo
// o fixtures. Sus escrituras se aplican de inmediato, sin unidad atómica ni movimiento ni auditoría:
// toda mutación del libro pasa por Run. Stock.Save es la única escritura directa que respeta el
// bloqueo del grupo; LockGroup sin unidad es una lectura sin bloqueo.
func (s *Store) Repos() repository.Repos {
	return reposFor(s, nil)
}

// Branches repositorio de sucursales.
func (s *Store) Branches() repository.BranchRepository { return &branchRepo{s: s} }

// Locations repositorio de ubicaciones.
func (s *Store) Locations() repository.LocationRepository { return &locationRepo{s: s} }

// Run ejecuta fn en una unidad atómica. Si fn falla no se publica nada.
// Una vez que fn termina sin error la confirmación no se interrumpe.
func (s *Store) Run(ctx context.Context, fn func(tx repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u := newUnit(s)
	defer u.releaseLocks()
	if err := fn(reposFor(s, u)); err != nil {
		return err
	}
	s.commit(u)
	return nil
}

func reposFor(s *Store, u *unit) repository.Repos {
	return repository.Repos{
		Stock:        &stockRepo{s: s, u: u},
		Movements:    &movementRepo{s: s, u: u},
		Reservations: &reservationRepo{s: s, u: u},
		Holds:        &holdRepo{s: s, u: u},
		Sales:        &saleRepo{s: s, u: u},
		Transfers:    &transferRepo{s: s, u: u},
		Audit:        &auditRepo{s: s, u: u},
		Items:        &itemRepo{s: s, u: u},
		Locations:    &locationRepo{s: s},
	}
}

// unit acumula las escrituras de una transacción y los bloqueos que tiene tomados.
type unit struct {
	s            *Store
	held         []string
	heldSet      map[string]struct{}
	levels       map[entity.StockKey]entity.StockLevel
	movements    []entity.StockMovement
	reservations map[int64]entity.Reservation
	holds        map[entity.GroupKey]entity.LedgerHold
	clearedHolds map[entity.GroupKey]entity.LedgerHold
	sales        map[string]entity.Sale
	transfers    map[string]entity.TransferRequest
	items        map[string]entity.Item
	audit        []entity.AuditLog
}

func newUnit(s *Store) *unit {
	return &unit{
		s:            s,
		heldSet:      make(map[string]struct{}),
		levels:       make(map[entity.StockKey]entity.StockLevel),
		reservations: make(map[int64]entity.Reservation),
		holds:        make(map[entity.GroupKey]entity.LedgerHold),
		clearedHolds: make(map[entity.GroupKey]entity.LedgerHold),
		sales:        make(map[string]entity.Sale),
		transfers:    make(map[string]entity.TransferRequest),
		items:        make(map[string]entity.Item),
	}
}

// lock es reentrante dentro de la misma unidad.
func (u *unit) lock(ctx context.Context, name string) error {
	if _, ok := u.heldSet[name]; ok {
		return nil
	}
	if err := u.s.locks.acquire(ctx, name, u.s.lockTimeout); err != nil {
		return err
	}
	u.heldSet[name] = struct{}{}
	u.held = append(u.held, name)
	return nil
}

func (u *unit) releaseLocks() {
	for i := len(u.held) - 1; i >= 0; i-- {
		u.s.locks.release(u.held[i])
	}
	u.held = nil
}

func (s *Store) commit(u *unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.data
	for k, v := range u.levels {
		d.levels[k] = v
	}
	d.movements = append(d.movements, u.movements...)
	for id, r := range u.reservations {
		d.reservations[id] = r
	}
	for k, h := range u.clearedHolds {
		delete(d.holds, k)
		d.holdHistory = append(d.holdHistory, h)
	}
	for k, h := range u.holds {
		d.holds[k] = h
	}
	for id, sale := range u.sales {
		d.sales[id] = sale
	}
	for id, t := range u.transfers {
		d.transfers[id] = t
	}
	for id, it := range u.items {
		d.items[id] = it
	}
	d.audit = append(d.audit, u.audit...)
}
