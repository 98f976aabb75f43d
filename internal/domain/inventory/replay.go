package inventory

import (
	"sort"

	"github.com/jhoicas/inventario-sucursales/internal/domain/entity"
)

// Replay reconstruye la cantidad por ubicación sumando los deltas desde cero.
func Replay(movements []*entity.StockMovement) map[string]int64 {
	out := make(map[string]int64)
	for _, m := range movements {
		out[m.LocationID] += m.Delta
	}
	return out
}

// Mismatch describe una clave cuyo nivel registrado difiere del reconstruido.
type Mismatch struct {
	LocationID string
	Recorded   int64
	Replayed   int64
}

// Compare devuelve las claves donde levels y replayed no coinciden, ordenadas por ubicación.
// Una clave con movimientos pero sin fila cuenta como registrado = 0.
func Compare(levels []*entity.StockLevel, replayed map[string]int64) []Mismatch {
	recorded := make(map[string]int64, len(levels))
	for _, l := range levels {
		recorded[l.Key.LocationID] = l.Quantity
	}
	seen := make(map[string]struct{}, len(recorded)+len(replayed))
	var out []Mismatch
	check := func(loc string) {
		if _, ok := seen[loc]; ok {
			return
		}
		seen[loc] = struct{}{}
		if recorded[loc] != replayed[loc] {
			out = append(out, Mismatch{LocationID: loc, Recorded: recorded[loc], Replayed: replayed[loc]})
		}
	}
	for loc := range recorded {
		check(loc)
	}
	for loc := range replayed {
		check(loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out
}

// OrderGroups elimina duplicados y ordena los grupos en el orden canónico de bloqueo.
func OrderGroups(keys []entity.GroupKey) []entity.GroupKey {
	seen := make(map[entity.GroupKey]struct{}, len(keys))
	out := make([]entity.GroupKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
