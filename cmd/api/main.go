package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/messaging"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/observability"
)

var version = "dev"

// stores repositorios y runner del driver elegido.
type stores struct {
	stock     repository.StockReader
	ledger    repository.LedgerReader
	orders    repository.OrderRepository
	items     repository.ItemRepository
	warehouse repository.WarehouseRepository
	levels    repository.InventoryLevelRepository
	txRunner  fulfillment.TxRunner
	health    func(ctx context.Context) error
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar trazas")
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("abrir almacenamiento")
	}
	defer st.close()

	// Alertas de bajo stock: siempre al log; además a Kafka si hay brokers.
	publishers := inventory.MultiPublisher{inventory.NewLogPublisher(log.Component("alerts"))}
	var kafkaPublisher *messaging.KafkaPublisher
	if len(cfg.Alerts.KafkaBrokers) > 0 {
		kafkaPublisher = messaging.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.Alerts.KafkaBrokers, cfg.Alerts.KafkaTopic))
		publishers = append(publishers, kafkaPublisher)
		log.Info().Strs("brokers", cfg.Alerts.KafkaBrokers).Str("topic", cfg.Alerts.KafkaTopic).Msg("alertas a Kafka habilitadas")
	}

	monitor := inventory.NewLowStockMonitor(st.stock, st.items, st.levels, publishers, log.Component("low_stock"))
	engine := fulfillment.NewEngine(
		st.txRunner, st.orders, st.items, st.warehouse, monitor,
		fulfillment.Policy{
			MaxRetries:                  cfg.Fulfillment.MaxRetries,
			LockTimeout:                 cfg.Fulfillment.LockTimeout,
			AllowNegativeAdjust:         cfg.Fulfillment.AllowNegativeAdjust,
			AllowNegativeReturnSupplier: cfg.Fulfillment.AllowNegativeReturnSupplier,
		},
		log.Component("fulfillment"),
	)

	var scheduler *inventory.SweepScheduler
	if cfg.Alerts.SweepCron != "" {
		scheduler = inventory.NewSweepScheduler(monitor, cfg.Alerts.SweepCron, log.Component("sweep"))
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Str("cron", cfg.Alerts.SweepCron).Msg("programar barrido de bajo stock")
		}
	}

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:         cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		SwaggerFile:  "./docs/swagger.json",
	})
	httpRouter.Router(app, httpRouter.RouterDeps{
		Orders:           usecase.NewOrderUseCase(st.orders, st.items, st.warehouse, engine),
		Catalog:          usecase.NewCatalogUseCase(st.warehouse, st.items),
		Engine:           engine,
		RegisterMovement: inventory.NewRegisterMovementUseCase(engine),
		StockQueries:     inventory.NewStockQueryUseCase(st.stock, st.ledger),
		Monitor:          monitor,
		Replenishment:    inventory.NewReplenishmentUseCase(st.levels),
		JWTSecret:        cfg.JWT.Secret,
		RequestTimeout:   cfg.HTTP.RequestTimeout,
		Log:              log.Component("http"),
		HealthCheck:      st.health,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar productor Kafka")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("vaciar trazas")
	}

	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Store.Driver == config.DriverMemory {
		s := memory.NewStore()
		if cfg.Store.SeedFile != "" {
			if err := s.LoadSeedFile(cfg.Store.SeedFile); err != nil {
				return nil, err
			}
			log.Info().Str("file", cfg.Store.SeedFile).Msg("datos maestros cargados")
		}
		return &stores{
			stock:     memory.NewStockRepository(s),
			ledger:    memory.NewLedgerRepository(s),
			orders:    memory.NewOrderRepository(s),
			items:     memory.NewItemRepository(s),
			warehouse: memory.NewWarehouseRepository(s),
			levels:    memory.NewInventoryLevelRepository(s),
			txRunner:  memory.NewTxRunner(s),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema PostgreSQL verificado")
	}
	return &stores{
		stock:     postgres.NewStockRepository(pool),
		ledger:    postgres.NewLedgerRepository(pool),
		orders:    postgres.NewOrderRepository(pool),
		items:     postgres.NewItemRepository(pool),
		warehouse: postgres.NewWarehouseRepository(pool),
		levels:    postgres.NewInventoryLevelRepository(pool),
		txRunner:  postgres.NewTxRunner(pool),
		health:    pool.Ping,
		close:     pool.Close,
	}, nil
}
