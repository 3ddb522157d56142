package http

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryHandler movimientos manuales y consultas de stock, libro y bajo stock (protegido).
type InventoryHandler struct {
	movements     *inventory.RegisterMovementUseCase
	queries       *inventory.StockQueryUseCase
	monitor       *inventory.LowStockMonitor
	replenishment *inventory.ReplenishmentUseCase
	log           zerolog.Logger
	timeout       time.Duration
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	movements *inventory.RegisterMovementUseCase,
	queries *inventory.StockQueryUseCase,
	monitor *inventory.LowStockMonitor,
	replenishment *inventory.ReplenishmentUseCase,
	log zerolog.Logger,
	timeout time.Duration,
) *InventoryHandler {
	return &InventoryHandler{
		movements:     movements,
		queries:       queries,
		monitor:       monitor,
		replenishment: replenishment,
		log:           log,
		timeout:       timeout,
	}
}

// Adjust godoc
// @Summary      Ajuste manual de stock
// @Description  Cantidad con signo distinta de cero. Bajo cero se rechaza salvo allow_negative o política.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterMovementRequest  true  "warehouse_id, item_id, quantity, note, allow_negative"
// @Success      201   {object}  dto.FulfillmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Type != "" && in.Type != inventory.MovementAdjust {
		return writeError(c, h.log, fmt.Errorf("%w: use /api/inventory/returns para %s", domain.ErrInvalidInput, in.Type))
	}
	in.Type = inventory.MovementAdjust
	return h.register(c, in)
}

// Return godoc
// @Summary      Devolución de cliente o a proveedor
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterMovementRequest  true  "type (RETURN_CUSTOMER|RETURN_SUPPLIER), warehouse_id, item_id, quantity > 0"
// @Success      201   {object}  dto.FulfillmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/returns [post]
func (h *InventoryHandler) Return(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Type != inventory.MovementReturnCustomer && in.Type != inventory.MovementReturnSupplier {
		return writeError(c, h.log, fmt.Errorf("%w: type debe ser RETURN_CUSTOMER o RETURN_SUPPLIER", domain.ErrInvalidInput))
	}
	return h.register(c, in)
}

func (h *InventoryHandler) register(c *fiber.Ctx, in dto.RegisterMovementRequest) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	res, err := h.movements.RegisterMovementFromRequest(ctx, GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toFulfillmentResponse(res))
}

// GetStock godoc
// @Summary      Cantidad actual de un ítem en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouseId  path      string  true  "Bodega"
// @Param        itemId       path      string  true  "Ítem"
// @Success      200          {object}  dto.StockResponse
// @Failure      404          {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{warehouseId}/{itemId} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	wh, item := c.Params("warehouseId"), c.Params("itemId")
	row, err := h.queries.CurrentQuantity(ctx, wh, item)
	if err != nil {
		return writeError(c, h.log, err)
	}
	low, err := h.monitor.IsLow(ctx, wh, item)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.StockResponse{
		WarehouseID: row.WarehouseID,
		ItemID:      row.ItemID,
		Quantity:    row.Quantity,
		IsLow:       low,
		UpdatedAt:   row.UpdatedAt,
	})
}

// ListLowStock godoc
// @Summary      Pares bajo su punto de reorden
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query     string  false  "Bodega; vacío = todas"
// @Success      200           {array}   dto.InventoryLevelResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) ListLowStock(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	levels, err := h.monitor.ListLow(ctx, c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.InventoryLevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, toLevelResponse(l))
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// ListLedger godoc
// @Summary      Libro de movimientos paginado por cursor
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query     string  false  "Bodega"
// @Param        item_id       query     string  false  "Ítem"
// @Param        ref_type      query     string  false  "PO, SO, MANUAL, RETURN_CUST, RETURN_SUPP"
// @Param        ref_id        query     string  false  "Referencia"
// @Param        after         query     int     false  "Cursor: solo entradas con id mayor"
// @Param        limit         query     int     false  "Tamaño de página (máx. 500)"
// @Success      200           {object}  dto.LedgerPageResponse
// @Failure      400           {object}  dto.ErrorResponse
// @Router       /api/inventory/ledger [get]
func (h *InventoryHandler) ListLedger(c *fiber.Ctx) error {
	var after int64
	if raw := c.Query("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return writeError(c, h.log, fmt.Errorf("%w: cursor inválido", domain.ErrInvalidInput))
		}
		after = n
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	entries, next, err := h.queries.LedgerPage(ctx, entity.LedgerFilter{
		WarehouseID: c.Query("warehouse_id"),
		ItemID:      c.Query("item_id"),
		RefType:     c.Query("ref_type"),
		RefID:       c.Query("ref_id"),
		AfterID:     after,
		Limit:       c.QueryInt("limit", 0),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	page := dto.LedgerPageResponse{Items: make([]dto.LedgerEntryResponse, 0, len(entries)), NextCursor: next}
	for _, e := range entries {
		page.Items = append(page.Items, toLedgerEntryResponse(*e))
	}
	return c.JSON(page)
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Ítems bajo su punto de reorden con la cantidad sugerida (1.5 × reorden − stock), mayor déficit primero.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega; vacío = todas"
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	list, err := h.replenishment.GenerateReplenishmentList(ctx, c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}

// Reconcile godoc
// @Summary      Conciliar stock contra el libro
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query     string  false  "Bodega; vacío = todas"
// @Success      200           {object}  dto.ReconcileResponse
// @Router       /api/inventory/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	report, err := h.queries.Reconcile(ctx, c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.ReconcileResponse{
		WarehouseID:   report.WarehouseID,
		Entries:       report.Entries,
		Rows:          report.Rows,
		Consistent:    report.Consistent(),
		Discrepancies: make([]dto.DiscrepancyResponse, 0, len(report.Discrepancies)),
	}
	for _, d := range report.Discrepancies {
		out.Discrepancies = append(out.Discrepancies, dto.DiscrepancyResponse{
			WarehouseID: d.Key.WarehouseID,
			ItemID:      d.Key.ItemID,
			Stored:      d.Stored,
			Replayed:    d.Replayed,
		})
	}
	return c.JSON(out)
}
