package fulfillment

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error (o el contexto se cancela antes del commit) no se aplica ninguna escritura.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
		orderRepo repository.OrderStatusRepository,
	) error) error
}

// StockNotifier recibe los pares tocados por una operación confirmada (monitor de bajo stock).
type StockNotifier interface {
	Refresh(ctx context.Context, keys []entity.StockKey) error
}
