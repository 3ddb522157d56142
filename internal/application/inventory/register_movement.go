package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Tipos aceptados en dto.RegisterMovementRequest.Type.
const (
	MovementAdjust         = "ADJUST"
	MovementReturnCustomer = "RETURN_CUSTOMER"
	MovementReturnSupplier = "RETURN_SUPPLIER"
)

// MovementEngine subconjunto del motor que usan los movimientos manuales.
type MovementEngine interface {
	Fulfill(ctx context.Context, req fulfillment.Request) (*fulfillment.Result, error)
}

// RegisterMovementUseCase registra ajustes y devoluciones de una sola línea a través del motor.
type RegisterMovementUseCase struct {
	engine MovementEngine
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(engine MovementEngine) *RegisterMovementUseCase {
	return &RegisterMovementUseCase{engine: engine}
}

// RegisterMovementFromRequest adapta el request HTTP a una llamada del motor.
func (uc *RegisterMovementUseCase) RegisterMovementFromRequest(ctx context.Context, actorID string, in dto.RegisterMovementRequest) (*fulfillment.Result, error) {
	var action fulfillment.Action
	switch in.Type {
	case MovementAdjust:
		action = fulfillment.ActionAdjust
	case MovementReturnCustomer:
		action = fulfillment.ActionReturnCustomer
	case MovementReturnSupplier:
		action = fulfillment.ActionReturnSupplier
	default:
		return nil, fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, in.Type)
	}
	return uc.engine.Fulfill(ctx, fulfillment.Request{
		Action:      action,
		WarehouseID: in.WarehouseID,
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		ActorID:     actorID,
		Note:        in.Note,
		Options:     fulfillment.Options{AllowNegative: in.AllowNegative},
	})
}
