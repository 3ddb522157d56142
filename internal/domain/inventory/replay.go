package inventory

import (
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Discrepancy diferencia entre la cantidad materializada y la reconstruida desde el libro.
type Discrepancy struct {
	Key      entity.StockKey
	Stored   int64
	Replayed int64
}

// Replayer reconstruye la cantidad de cada par sumando los deltas del libro.
// Todas las filas nacen en 0, por lo que la suma de deltas debe igualar la cantidad almacenada.
type Replayer struct {
	totals map[entity.StockKey]int64
	count  int
}

// NewReplayer construye un acumulador vacío.
func NewReplayer() *Replayer {
	return &Replayer{totals: make(map[entity.StockKey]int64)}
}

// Add acumula una entrada del libro.
func (r *Replayer) Add(e entity.LedgerEntry) {
	r.totals[e.Key()] += e.DeltaQty
	r.count++
}

// Entries número de entradas acumuladas.
func (r *Replayer) Entries() int { return r.count }

// Quantity cantidad reconstruida para el par.
func (r *Replayer) Quantity(key entity.StockKey) int64 { return r.totals[key] }

// Diff compara contra las filas almacenadas. Un par con movimientos pero sin fila también es discrepancia.
// El resultado va ordenado por bodega e ítem para que sea estable.
func (r *Replayer) Diff(rows []*entity.StockRow) []Discrepancy {
	seen := make(map[entity.StockKey]struct{}, len(rows))
	var out []Discrepancy
	for _, row := range rows {
		key := row.Key()
		seen[key] = struct{}{}
		if replayed := r.totals[key]; replayed != row.Quantity {
			out = append(out, Discrepancy{Key: key, Stored: row.Quantity, Replayed: replayed})
		}
	}
	for key, replayed := range r.totals {
		if _, ok := seen[key]; ok || replayed == 0 {
			continue
		}
		out = append(out, Discrepancy{Key: key, Stored: 0, Replayed: replayed})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.WarehouseID != out[j].Key.WarehouseID {
			return out[i].Key.WarehouseID < out[j].Key.WarehouseID
		}
		return out[i].Key.ItemID < out[j].Key.ItemID
	})
	return out
}
