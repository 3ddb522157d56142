package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// writeError traduce la taxonomía del dominio a HTTP. Los conflictos de stock y estado llevan
// el detalle estructurado en Details.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, body := errorResponse(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Int("status", status).Msg("error en request")
	}
	return c.Status(status).JSON(body)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var (
		insufficient *domain.InsufficientStockError
		negative     *domain.NegativeStockError
		badState     *domain.InvalidOrderStateError
	)
	switch {
	case errors.As(err, &insufficient):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: "stock insuficiente",
			Details: fiber.Map{
				"warehouse_id": insufficient.WarehouseID,
				"item_id":      insufficient.ItemID,
				"available":    insufficient.Available,
				"requested":    insufficient.Requested,
			},
		}
	case errors.As(err, &negative):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "NEGATIVE_STOCK_REJECTED",
			Message: "el movimiento dejaría stock negativo",
			Details: fiber.Map{
				"warehouse_id": negative.WarehouseID,
				"item_id":      negative.ItemID,
				"current":      negative.Current,
				"delta":        negative.Delta,
			},
		}
	case errors.As(err, &badState):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "INVALID_ORDER_STATE",
			Message: err.Error(),
			Details: fiber.Map{"order_id": badState.OrderID, "status": badState.Status, "action": badState.Action},
		}
	case errors.Is(err, domain.ErrOrderHasNoLines):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "ORDER_HAS_NO_LINES", Message: "la orden no tiene líneas"}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, domain.ErrOrderNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "ORDER_NOT_FOUND", Message: "orden no encontrada"}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"}
	case errors.Is(err, domain.ErrConcurrentModification):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "CONCURRENT_MODIFICATION", Message: "modificación concurrente, reintente"}
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "STORE_UNAVAILABLE", Message: "almacenamiento no disponible, intente más tarde"}
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, dto.ErrorResponse{Code: "TIMEOUT", Message: "la operación excedió el tiempo límite"}
	case errors.Is(err, context.Canceled):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "CANCELED", Message: "request cancelado"}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
