package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dimasprasetyo/orderflow/internal/domain"
	"github.com/dimasprasetyo/orderflow/internal/health"
	"github.com/dimasprasetyo/orderflow/internal/metrics"
	"github.com/dimasprasetyo/orderflow/internal/service/carrier"
	"github.com/dimasprasetyo/orderflow/internal/service/fulfillment"
	"github.com/dimasprasetyo/orderflow/internal/service/lifecycle"
	"github.com/dimasprasetyo/orderflow/internal/service/notifier"
	"github.com/dimasprasetyo/orderflow/internal/service/payment"
	"github.com/dimasprasetyo/orderflow/internal/service/reconcile"
	"github.com/dimasprasetyo/orderflow/internal/storage/memory"
	"github.com/dimasprasetyo/orderflow/internal/storage/postgres"
)

// Dependencies содержит собранные зависимости движка.
type Dependencies struct {
	Lifecycle   *lifecycle.Engine
	Reconcile   *reconcile.Engine
	Fulfillment *fulfillment.Service
	Outbox      domain.OutboxRepository
	Logger      *log.Entry

	healthChecks map[string]health.CheckFunc
	closeFn      func() error
}

// NewDependencies собирает хранилище, репозитории и движки. При пустом
// DATABASE_URL используется in-memory хранилище.
// NOTE: платёжные провайдеры, перевозчик и notifier — внешние
// коллабораторы; здесь подключены их mock-реализации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Logger:       logger,
		healthChecks: make(map[string]health.CheckFunc),
		closeFn:      func() error { return nil },
	}

	var (
		uow       domain.UnitOfWork
		orders    domain.OrderRepository
		payments  domain.PaymentRepository
		shipments domain.ShippingRepository
		inventory domain.InventoryLedger
		carts     domain.CartRepository
		addresses domain.AddressRepository
		origins   domain.OriginRepository
		audit     domain.AuditLogRepository
		outboxRep domain.OutboxRepository
	)

	if cfg.DatabaseURL != "" {
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.MigrateOnStart {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		logger.Info("using postgres storage")

		uow = store
		orders = postgres.NewOrderRepository(store)
		payments = postgres.NewPaymentRepository(store)
		shipments = postgres.NewShippingRepository(store)
		inventory = postgres.NewInventoryLedger(store)
		carts = postgres.NewCartRepository(store)
		addresses = postgres.NewAddressRepository(store)
		origins = postgres.NewOriginRepository(store)
		audit = postgres.NewAuditLogRepository(store)
		outboxRep = postgres.NewOutboxRepository(store)

		deps.healthChecks["postgres"] = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}
		deps.closeFn = store.Close
	} else {
		store := memory.NewStore()
		logger.Info("using in-memory storage")

		uow = store
		orders = memory.NewOrderRepository(store)
		payments = memory.NewPaymentRepository(store)
		shipments = memory.NewShippingRepository(store)
		inventory = memory.NewInventoryLedger(store)
		carts = memory.NewCartRepository(store)
		addresses = memory.NewAddressRepository(store)
		origins = memory.NewOriginRepository(store)
		audit = memory.NewAuditLogRepository(store)
		outboxRep = memory.NewOutboxRepository(store)
	}

	lifecycleMetrics := metrics.NewLifecycleMetrics()
	notify := notifier.NewLogNotifier(logger.WithField("component", "notifier"))
	carrierGw := carrier.NewMockGateway()

	deps.Fulfillment = fulfillment.NewService(fulfillment.Deps{
		Carrier:   carrierGw,
		Origins:   origins,
		Addresses: addresses,
		Orders:    orders,
		Shipments: shipments,
		Inventory: inventory,
		Logger:    logger.WithField("component", "fulfillment"),
	})

	deps.Lifecycle = lifecycle.NewEngine(lifecycle.Deps{
		UnitOfWork: uow,
		Orders:     orders,
		Carts:      carts,
		Addresses:  addresses,
		Inventory:  inventory,
		Shipments:  shipments,
		Audit:      audit,
		Outbox:     outboxRep,
		Waybills:   deps.Fulfillment,
		Notifier:   notify,
		Logger:     logger.WithField("component", "lifecycle"),
		Metrics:    lifecycleMetrics,
	})

	deps.Reconcile = reconcile.NewEngine(reconcile.Deps{
		UnitOfWork: uow,
		Orders:     orders,
		Payments:   payments,
		Audit:      audit,
		Outbox:     outboxRep,
		Providers: map[domain.PaymentMethod]domain.PaymentProvider{
			domain.PaymentMethodGateway: payment.NewMockProvider(),
			domain.PaymentMethodWallet:  payment.NewMockProvider(),
		},
		Notifier: notify,
		Logger:   logger.WithField("component", "reconcile"),
		Metrics:  lifecycleMetrics,
	})

	deps.Outbox = outboxRep
	return deps, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	return d.closeFn()
}
