package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/ariefcatur/icebay-pos/internal/analytics"
	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/ariefcatur/icebay-pos/internal/config"
	"github.com/ariefcatur/icebay-pos/internal/httpx"
	kafkax "github.com/ariefcatur/icebay-pos/internal/kafka"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/ariefcatur/icebay-pos/internal/postgres"
	"github.com/ariefcatur/icebay-pos/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	// Repos & engine
	varieties := &catalog.Repo{DB: db}
	ledger := &orders.Ledger{DB: db}
	engine := &orders.Engine{Store: ledger, Varieties: varieties}
	stats := &analytics.Service{
		Orders:            ledger,
		Varieties:         varieties,
		Cache:             rdb,
		Loc:               cfg.Location(),
		LowStockThreshold: cfg.LowStockThreshold,
		Log:               log,
	}

	router := httpx.NewRouter()
	(&httpx.CatalogHandler{Catalog: varieties, Sales: engine, Pub: prod, Service: cfg.ServiceName, Log: log}).Register(router)
	(&httpx.CartHandler{
		Carts:     &redisx.CartStore{RDB: rdb, TTL: cfg.CartTTL},
		Varieties: varieties,
		Orders:    ledger,
		Engine:    engine,
		Idem:      &redisx.Idempotency{RDB: rdb},
		Pub:       prod,
		Service:   cfg.ServiceName,
		Log:       log,
	}).Register(router)
	(&httpx.OrdersHandler{Orders: ledger, Engine: engine, Pub: prod, Service: cfg.ServiceName, Log: log}).Register(router)
	(&httpx.AnalyticsHandler{Analytics: stats, Loc: cfg.Location(), Log: log}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // no more publishes; the loop drains and closes the writer
	prod.WaitClosed()
}
