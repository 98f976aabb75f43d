package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/inventario-sucursales/internal/domain"
)

// lockTable mutex exclusivos por nombre con espera acotada.
// Cada nombre es un canal de capacidad 1: ocupar el cupo es tener el bloqueo.
type lockTable struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{m: make(map[string]chan struct{})}
}

func (t *lockTable) slot(name string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.m[name]
	if !ok {
		ch = make(chan struct{}, 1)
		t.m[name] = ch
	}
	return ch
}

func (t *lockTable) acquire(ctx context.Context, name string, timeout time.Duration) error {
	ch := t.slot(name)
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s tras %s", domain.ErrLockTimeout, name, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *lockTable) release(name string) {
	<-t.slot(name)
}

func stockLockName(itemID, branchID string) string { return "stock:" + itemID + "|" + branchID }
func saleLockName(id string) string                { return "sale:" + id }
func transferLockName(id string) string            { return "transfer:" + id }
