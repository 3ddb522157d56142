package http

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// Roles que pueden registrar movimientos manuales (ajustes y devoluciones).
var manualMovementRoles = []string{"admin", "bodeguero"}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orders           *usecase.OrderUseCase
	Catalog          *usecase.CatalogUseCase
	Engine           *fulfillment.Engine
	RegisterMovement *inventory.RegisterMovementUseCase
	StockQueries     *inventory.StockQueryUseCase
	Monitor          *inventory.LowStockMonitor
	Replenishment    *inventory.ReplenishmentUseCase
	JWTSecret        string
	RequestTimeout   time.Duration
	Log              zerolog.Logger
	// HealthCheck verifica el almacenamiento; nil = siempre sano.
	HealthCheck func(ctx context.Context) error
}

// AppConfig opciones del servidor Fiber.
type AppConfig struct {
	Name         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SwaggerFile  string // se monta /docs solo si el archivo existe
}

// NewApp crea la app Fiber con recover y swagger.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	if cfg.SwaggerFile != "" {
		if _, err := os.Stat(cfg.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.SwaggerFile,
				Path:     "docs",
				Title:    "Stock Ledger API",
			}))
		}
	}
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps))

	protected := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	orderHandler := NewOrderHandler(deps.Orders, deps.Engine, deps.Log, deps.RequestTimeout)
	orders := protected.Group("/orders")
	orders.Post("/", orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Post("/:id/lines", orderHandler.AddLine)
	orders.Put("/:id/lines/:lineId", orderHandler.UpdateLine)
	orders.Delete("/:id/lines/:lineId", orderHandler.RemoveLine)
	orders.Post("/:id/status", orderHandler.AdvanceStatus)
	orders.Post("/:id/receive", orderHandler.Receive)
	orders.Post("/:id/ship", orderHandler.Ship)

	invHandler := NewInventoryHandler(deps.RegisterMovement, deps.StockQueries, deps.Monitor, deps.Replenishment, deps.Log, deps.RequestTimeout)
	inv := protected.Group("/inventory")
	inv.Post("/adjustments", RequireRole(manualMovementRoles...), invHandler.Adjust)
	inv.Post("/returns", RequireRole(manualMovementRoles...), invHandler.Return)
	inv.Get("/stock/:warehouseId/:itemId", invHandler.GetStock)
	inv.Get("/low-stock", invHandler.ListLowStock)
	inv.Get("/ledger", invHandler.ListLedger)
	inv.Get("/replenishment-list", invHandler.GetReplenishmentList)
	inv.Get("/reconcile", invHandler.Reconcile)

	catalog := NewCatalogHandler(deps.Catalog, deps.Log, deps.RequestTimeout)
	protected.Get("/warehouses", catalog.ListWarehouses)
	protected.Get("/warehouses/:id", catalog.GetWarehouse)
	protected.Get("/items", catalog.ListItems)
	protected.Get("/items/:id", catalog.GetItem)
}

func healthHandler(deps RouterDeps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := deps.HealthCheck(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORE_UNAVAILABLE", Message: "almacenamiento no disponible"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
