package inventory

import (
	"context"
	"fmt"
	"iter"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	defaultLedgerPage = 100
	maxLedgerPage     = 500
)

// StockQueryUseCase lecturas de stock y del libro de movimientos. No muta nada.
type StockQueryUseCase struct {
	stockRepo  repository.StockReader
	ledgerRepo repository.LedgerReader
}

// NewStockQueryUseCase construye el caso de uso.
func NewStockQueryUseCase(stockRepo repository.StockReader, ledgerRepo repository.LedgerReader) *StockQueryUseCase {
	return &StockQueryUseCase{stockRepo: stockRepo, ledgerRepo: ledgerRepo}
}

// CurrentQuantity cantidad disponible del par; 0 si nunca tuvo movimientos.
func (uc *StockQueryUseCase) CurrentQuantity(ctx context.Context, warehouseID, itemID string) (*entity.StockRow, error) {
	if warehouseID == "" || itemID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.stockRepo.Get(ctx, warehouseID, itemID)
}

// LedgerPage una página del libro en orden ascendente. next es el cursor para la siguiente
// página (0 si no hay más).
func (uc *StockQueryUseCase) LedgerPage(ctx context.Context, filter entity.LedgerFilter) (entries []*entity.LedgerEntry, next int64, err error) {
	if filter.AfterID < 0 {
		return nil, 0, fmt.Errorf("%w: cursor negativo", domain.ErrInvalidInput)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultLedgerPage
	case filter.Limit > maxLedgerPage:
		filter.Limit = maxLedgerPage
	}
	entries, err = uc.ledgerRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if len(entries) == filter.Limit {
		next = entries[len(entries)-1].ID
	}
	return entries, next, nil
}

// ListLedger recorre el libro de forma perezosa, página a página, desde filter.AfterID.
// Un error corta la iteración después de entregarse.
func (uc *StockQueryUseCase) ListLedger(ctx context.Context, filter entity.LedgerFilter) iter.Seq2[entity.LedgerEntry, error] {
	return func(yield func(entity.LedgerEntry, error) bool) {
		for {
			page, next, err := uc.LedgerPage(ctx, filter)
			if err != nil {
				yield(entity.LedgerEntry{}, err)
				return
			}
			for _, e := range page {
				if !yield(*e, nil) {
					return
				}
			}
			if next == 0 {
				return
			}
			filter.AfterID = next
		}
	}
}

// ReconcileReport resultado de reconstruir el stock desde el libro.
type ReconcileReport struct {
	WarehouseID   string
	Entries       int
	Rows          int
	Discrepancies []invdomain.Discrepancy
}

// Consistent indica si el libro reproduce exactamente las filas almacenadas.
func (r *ReconcileReport) Consistent() bool { return len(r.Discrepancies) == 0 }

// Reconcile suma los deltas del libro por par y los compara con las filas de stock.
// warehouseID vacío = todas las bodegas.
func (uc *StockQueryUseCase) Reconcile(ctx context.Context, warehouseID string) (*ReconcileReport, error) {
	replayer := invdomain.NewReplayer()
	for e, err := range uc.ListLedger(ctx, entity.LedgerFilter{WarehouseID: warehouseID, Limit: maxLedgerPage}) {
		if err != nil {
			return nil, err
		}
		replayer.Add(e)
	}
	rows, err := uc.stockRepo.List(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return &ReconcileReport{
		WarehouseID:   warehouseID,
		Entries:       replayer.Entries(),
		Rows:          len(rows),
		Discrepancies: replayer.Diff(rows),
	}, nil
}
