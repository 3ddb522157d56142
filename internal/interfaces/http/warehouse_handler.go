package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// CatalogHandler consulta de bodegas e ítems (datos maestros de solo lectura).
type CatalogHandler struct {
	uc      *usecase.CatalogUseCase
	log     zerolog.Logger
	timeout time.Duration
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(uc *usecase.CatalogUseCase, log zerolog.Logger, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{uc: uc, log: log, timeout: timeout}
}

// ListWarehouses godoc
// @Summary      Listar bodegas
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.WarehouseListResponse
// @Router       /api/warehouses [get]
func (h *CatalogHandler) ListWarehouses(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.ListWarehouses(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetWarehouse godoc
// @Summary      Obtener bodega por ID
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la bodega"
// @Success      200  {object}  dto.WarehouseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id} [get]
func (h *CatalogHandler) GetWarehouse(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.GetWarehouse(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// ListItems godoc
// @Summary      Listar ítems del catálogo
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ItemListResponse
// @Router       /api/items [get]
func (h *CatalogHandler) ListItems(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.ListItems(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetItem godoc
// @Summary      Obtener ítem por ID
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del ítem"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *CatalogHandler) GetItem(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()
	out, err := h.uc.GetItem(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
