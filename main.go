package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcart "github.com/Zhima-Mochi/storefront/internal/application/cart"
	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	apployalty "github.com/Zhima-Mochi/storefront/internal/application/loyalty"
	appnotify "github.com/Zhima-Mochi/storefront/internal/application/notification"
	apporder "github.com/Zhima-Mochi/storefront/internal/application/order"
	"github.com/Zhima-Mochi/storefront/internal/config"
	domcart "github.com/Zhima-Mochi/storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/storefront/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	domloyalty "github.com/Zhima-Mochi/storefront/internal/domain/loyalty"
	domorder "github.com/Zhima-Mochi/storefront/internal/domain/order"
	"github.com/Zhima-Mochi/storefront/internal/domain/tenant"
	"github.com/Zhima-Mochi/storefront/internal/domain/tx"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/currency"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/id"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/notify"
	infraobs "github.com/Zhima-Mochi/storefront/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/persistence/gormstore"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/rediscart"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/redislock"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	httppresentation "github.com/Zhima-Mochi/storefront/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/storefront/internal/presentation/worker"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// stores are the persistence ports of one backend.
type stores struct {
	carts     domcart.DurableStore
	orders    domorder.Repository
	inventory dominv.Repository
	loyalty   domloyalty.Repository
	shared    sharedStore
	checks    map[string]httppresentation.Checker
	close     func() error
}

// services holds the use cases a request transport calls. This binary ships
// only the workers and the ops endpoints, so nothing below reads ledger,
// loyalty or orders yet; they are built here so that a transport added to
// main receives fully wired services.
type services struct {
	carts   *appcart.Service
	ledger  *appinv.Ledger
	loyalty *apployalty.Service
	orders  *apporder.Service
}

type sharedStore interface {
	tx.Transactor
	catalog.Catalog
	tenant.Directory
	appcart.ShippingRates
	currency.RateSource
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	tel, err := infraobs.Setup(infraobs.Config{
		Service:    cfg.ServiceName,
		Env:        cfg.Env,
		LogLevel:   cfg.LogLevel,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = tel.Close() }()
	log := tel.Logger().With(observability.F("component", "main"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("storage_open_failed", observability.Err(err))
		os.Exit(1)
	}
	defer func() { _ = st.close() }()

	ids := id.New()

	var (
		ephemeral domcart.Store
		locker    apporder.Locker
		converter *currency.Converter
	)
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		ephemeral = rediscart.New(rdb, cfg.GuestCartTTL, tel.Logger())
		locker = redislock.New(rdb)
		converter = currency.NewConverter(st.shared, rdb, cfg.CurrencyRateCache)
		st.checks["redis"] = httppresentation.CheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	} else {
		log.Warn("redis_disabled", observability.F("reason", "REDIS_ADDRESS is empty"))
		ephemeral = memory.NewEphemeralCartStore(cfg.GuestCartTTL)
		locker = memory.NewLocker()
		converter = currency.NewConverter(st.shared, nil, cfg.CurrencyRateCache)
	}

	bus := outbox.NewBus(tel.Logger())

	loyaltySvc := apployalty.NewService(st.loyalty, st.shared, ids, tel)
	ledger := appinv.NewLedger(st.inventory, st.shared, ids, tel)
	cartSvc := appcart.NewService(appcart.Deps{
		Durable:    st.carts,
		Ephemeral:  ephemeral,
		Catalog:    st.shared,
		Currency:   converter,
		Taxes:      appcart.TenantTaxRates{Directory: st.shared, Default: cfg.DefaultTaxRate},
		Shipping:   st.shared,
		Tenants:    st.shared,
		Transactor: st.shared,
		IDs:        ids,
	}, tel,
		appcart.WithGuestTTL(cfg.GuestCartTTL),
		appcart.WithCurrencyTimeout(cfg.CurrencyTimeout),
	)
	svc := services{
		carts:   cartSvc,
		ledger:  ledger,
		loyalty: loyaltySvc,
	}
	svc.orders = apporder.NewService(apporder.Deps{
		Orders:     st.orders,
		Carts:      cartSvc,
		Inventory:  ledger,
		Loyalty:    loyaltySvc,
		Catalog:    st.shared,
		Tenants:    st.shared,
		Transactor: st.shared,
		Locker:     locker,
		Publisher:  bus,
		IDs:        ids,
		Suffixes:   ids,
	}, tel, apporder.WithLockTTL(cfg.CheckoutLockTTL))

	notifier, stopNotifier, err := newNotifier(ctx, cfg, tel.Logger())
	if err != nil {
		log.Error("notifier_setup_failed", observability.Err(err))
		os.Exit(1)
	}
	defer stopNotifier()
	workerpresentation.NewNotificationWorker(bus, appnotify.NewNotifyUseCase(notifier, appnotify.DefaultTimeout, tel), tel).Start()
	bus.Start(ctx)

	go workerpresentation.NewCartPurger(svc.carts, cfg.CartPurgeInterval, cfg.CartPurgeAfter, tel).Run(ctx)

	server := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           httppresentation.NewHandler(prometheus.DefaultGatherer, st.checks, tel).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_error", observability.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http_server_shutdown_error", observability.Err(err))
	} else {
		log.Info("http_server_stopped")
	}
	bus.Stop(shutdownCtx)
}

func openStores(ctx context.Context, cfg config.Config, log observability.Logger) (*stores, error) {
	if cfg.StorageBackend != config.BackendMySQL {
		log.Warn("memory_backend_enabled")
		store := memory.NewStore()
		return &stores{
			carts:     store.Carts(),
			orders:    store.Orders(),
			inventory: store.Inventory(),
			loyalty:   store.Loyalty(uuid.NewString),
			shared:    store,
			checks:    map[string]httppresentation.Checker{},
			close:     func() error { return nil },
		}, nil
	}

	db, err := gormstore.Open(ctx, gormstore.Config{
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		Name:            cfg.DB.Name,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, err
	}
	if err := gormstore.Migrate(ctx, db); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	store := gormstore.NewStore(db)
	return &stores{
		carts:     store.Carts(),
		orders:    store.Orders(),
		inventory: store.Inventory(),
		loyalty:   store.Loyalty(uuid.NewString),
		shared:    store,
		checks: map[string]httppresentation.Checker{
			"database": httppresentation.CheckFunc(sqlDB.PingContext),
		},
		close: sqlDB.Close,
	}, nil
}

// newNotifier publishes to Pub/Sub when a project is configured and logs
// notifications otherwise.
func newNotifier(ctx context.Context, cfg config.Config, logger observability.Logger) (appnotify.Notifier, func(), error) {
	if cfg.PubSubProjectID == "" {
		return notify.NewLogNotifier(logger), func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID)
	if err != nil {
		return nil, nil, err
	}
	if err := notify.EnsureTopic(ctx, client, cfg.PubSubTopic); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	n := notify.NewPubSubNotifier(client, cfg.PubSubTopic)
	return n, func() {
		n.Stop()
		_ = client.Close()
	}, nil
}
