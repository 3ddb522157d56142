package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerReader lectura del libro de movimientos.
type LedgerReader interface {
	// List devuelve entradas con ID > filter.AfterID en orden ascendente, hasta filter.Limit.
	List(ctx context.Context, filter entity.LedgerFilter) ([]*entity.LedgerEntry, error)
}

// LedgerRepository puerto del libro de movimientos (solo inserción, dentro de transacción).
type LedgerRepository interface {
	LedgerReader
	// Append inserta la entrada y asigna su ID monotónico (en memoria, al confirmar la transacción).
	Append(ctx context.Context, entry *entity.LedgerEntry) error
}
