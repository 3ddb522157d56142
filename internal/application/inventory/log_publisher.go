package inventory

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher escribe las alertas en el log estructurado.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher construye el publicador.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, a LowStockAlert) error {
	ev := p.log.Info()
	msg := "stock recuperado"
	if a.Low {
		ev = p.log.Warn()
		msg = "stock bajo punto de reorden"
	}
	ev.Str("warehouse_id", a.WarehouseID).
		Str("item_id", a.ItemID).
		Int64("quantity", a.Quantity).
		Int64("reorder_level", a.ReorderLevel).
		Msg(msg)
	return nil
}

// MultiPublisher reparte cada alerta entre varios publicadores; devuelve el primer error
// pero siempre intenta con todos.
type MultiPublisher []AlertPublisher

func (m MultiPublisher) Publish(ctx context.Context, a LowStockAlert) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}
