package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// OrderHandler alta/edición de órdenes y su recepción o despacho (protegido).
type OrderHandler struct {
	uc      *usecase.OrderUseCase
	engine  *fulfillment.Engine
	log     zerolog.Logger
	timeout time.Duration
}

// NewOrderHandler construye el handler.
func NewOrderHandler(uc *usecase.OrderUseCase, engine *fulfillment.Engine, log zerolog.Logger, timeout time.Duration) *OrderHandler {
	return &OrderHandler{uc: uc, engine: engine, log: log, timeout: timeout}
}

// Create godoc
// @Summary      Crear orden de compra o venta
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateOrderRequest  true  "kind (PURCHASE|SALES), counterparty_id, warehouse_id"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.Create(ctx, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener orden con líneas y total
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.GetByID(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar órdenes
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        kind    query     string  false  "PURCHASE o SALES"
// @Param        status  query     string  false  "Estado"
// @Param        limit   query     int     false  "Límite (máx. 100)"
// @Param        offset  query     int     false  "Desplazamiento"
// @Success      200     {object}  dto.OrderListResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.List(ctx, c.Query("kind"), c.Query("status"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// AddLine godoc
// @Summary      Agregar línea
// @Description  En compras el precio se toma del catálogo; en ventas puede indicarse.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "ID de la orden"
// @Param        body  body      dto.AddOrderLineRequest  true  "item_id, quantity, unit_price opcional"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/lines [post]
func (h *OrderHandler) AddLine(c *fiber.Ctx) error {
	var in dto.AddOrderLineRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.AddLine(ctx, c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateLine godoc
// @Summary      Modificar línea
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path      string                      true  "ID de la orden"
// @Param        lineId  path      string                      true  "ID de la línea"
// @Param        body    body      dto.UpdateOrderLineRequest  true  "quantity y/o unit_price"
// @Success      200     {object}  dto.OrderResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/lines/{lineId} [put]
func (h *OrderHandler) UpdateLine(c *fiber.Ctx) error {
	var in dto.UpdateOrderLineRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.UpdateLine(ctx, c.Params("id"), c.Params("lineId"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// RemoveLine godoc
// @Summary      Eliminar línea
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id      path      string  true  "ID de la orden"
// @Param        lineId  path      string  true  "ID de la línea"
// @Success      200     {object}  dto.OrderResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/lines/{lineId} [delete]
func (h *OrderHandler) RemoveLine(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.RemoveLine(ctx, c.Params("id"), c.Params("lineId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// AdvanceStatus godoc
// @Summary      Avanzar estado (CREATED→APPROVED→PARTIAL, NEW→CONFIRMED)
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "ID de la orden"
// @Param        body  body      dto.AdvanceStatusRequest  true  "status destino"
// @Success      200   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/status [post]
func (h *OrderHandler) AdvanceStatus(c *fiber.Ctx) error {
	var in dto.AdvanceStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.AdvanceStatus(ctx, c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Receive godoc
// @Summary      Recibir orden de compra
// @Description  Suma cada línea al stock de la bodega, registra una entrada IN/PO por línea y deja la orden en RECEIVED.
// @Tags         fulfillment
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true   "ID de la orden de compra"
// @Param        body  body      dto.FulfillOrderRequest  false  "nota"
// @Success      200   {object}  dto.FulfillmentResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/receive [post]
func (h *OrderHandler) Receive(c *fiber.Ctx) error {
	in, err := parseFulfillBody(c)
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	res, err := h.engine.ReceivePO(ctx, c.Params("id"), GetUserID(c), in.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toFulfillmentResponse(res))
}

// Ship godoc
// @Summary      Despachar orden de venta
// @Description  Verifica disponibilidad por ítem, descuenta cada línea, registra OUT/SO y deja la orden en SHIPPED.
// @Tags         fulfillment
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true   "ID de la orden de venta"
// @Param        body  body      dto.FulfillOrderRequest  false  "nota, skip_pre_check"
// @Success      200   {object}  dto.FulfillmentResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/ship [post]
func (h *OrderHandler) Ship(c *fiber.Ctx) error {
	in, err := parseFulfillBody(c)
	if err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	res, err := h.engine.ShipSO(ctx, c.Params("id"), GetUserID(c), in.Note, fulfillment.Options{SkipPreCheck: in.SkipPreCheck})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toFulfillmentResponse(res))
}

// el body es opcional en receive/ship
func parseFulfillBody(c *fiber.Ctx) (dto.FulfillOrderRequest, error) {
	var in dto.FulfillOrderRequest
	if len(c.Body()) == 0 {
		return in, nil
	}
	err := c.BodyParser(&in)
	return in, err
}
