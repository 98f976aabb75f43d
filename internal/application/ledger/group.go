package ledger

import (
	"sort"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// Group es la vista bloqueada de un grupo (item, sucursal) dentro de una unidad atómica.
// Solo Ledger.Lock lo construye; tenerlo implica tener el bloqueo exclusivo.
type Group struct {
	key      entity.GroupKey
	levels   map[string]*entity.StockLevel
	reserved int64
}

func newGroup(key entity.GroupKey, levels []*entity.StockLevel, reserved int64) *Group {
	g := &Group{key: key, levels: make(map[string]*entity.StockLevel, len(levels)), reserved: reserved}
	for _, l := range levels {
		g.levels[l.Key.LocationID] = l
	}
	return g
}

// Key identifica el grupo.
func (g *Group) Key() entity.GroupKey { return g.key }

// Read devuelve la cantidad registrada en una ubicación ("" = nivel sucursal).
func (g *Group) Read(location string) int64 {
	if l, ok := g.levels[location]; ok {
		return l.Quantity
	}
	return 0
}

// Recorded suma lo registrado en todas las ubicaciones del grupo.
func (g *Group) Recorded() int64 {
	var n int64
	for _, l := range g.levels {
		n += l.Quantity
	}
	return n
}

// Reserved cantidad retenida por traslados en curso.
func (g *Group) Reserved() int64 { return g.reserved }

// Available es lo registrado menos lo reservado.
func (g *Group) Available() int64 { return g.Recorded() - g.reserved }

// Locations devuelve las ubicaciones con fila, en orden ascendente ("" primero).
func (g *Group) Locations() []string {
	out := make([]string, 0, len(g.levels))
	for loc := range g.levels {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Snapshot devuelve las cantidades de uno o más grupos indexadas por StockKey.String().
func Snapshot(groups ...*Group) map[string]int64 {
	out := make(map[string]int64)
	for _, g := range groups {
		for _, l := range g.levels {
			out[l.Key.String()] = l.Quantity
		}
	}
	return out
}
