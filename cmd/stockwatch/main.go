package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/ariefcatur/icebay-pos/internal/config"
	kafkax "github.com/ariefcatur/icebay-pos/internal/kafka"
	"github.com/ariefcatur/icebay-pos/internal/postgres"
	"github.com/ariefcatur/icebay-pos/internal/redisx"
	"github.com/ariefcatur/icebay-pos/internal/stockwatch"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-stockwatch"
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", name)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for variety.stock.low
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 256, log)
	prod.Start(ctx)

	svc := &stockwatch.Service{
		Varieties:   &catalog.Repo{DB: db},
		Redis:       rdb,
		Pub:         prod,
		ServiceName: name,
		Threshold:   cfg.LowStockThreshold,
		Loc:         cfg.Location(),
		Log:         log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StockwatchGroup, cfg.StockwatchWorkers, log, stockwatch.Topics...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("stockwatch consumer started", "group", cfg.StockwatchGroup,
			"topics", strings.Join(stockwatch.Topics, ","), "workers", cfg.StockwatchWorkers)
		if err := cons.Start(ctx, svc.HandleMessage); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
	prod.Close()
	prod.WaitClosed()
}
