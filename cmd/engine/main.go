package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fenrir/api/httpserver"
	"fenrir/config"
	"fenrir/domain/orderbook"
	"fenrir/engine"
	"fenrir/infra/journal"
	"fenrir/infra/kafka"
	"fenrir/infra/outbox"
	"fenrir/jobs/broadcaster"
)

func main() {
	cfg := config.LoadFromEnv("")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// ---------------- Durability ----------------

	jnl, err := journal.Open(journal.Config{
		Dir:         cfg.Durability.JournalDir,
		SegmentSize: cfg.Durability.JournalSegSize,
	})
	if err != nil {
		logger.Fatal("journal init failed", zap.Error(err))
	}
	defer jnl.Close()

	ob, err := outbox.Open(cfg.Durability.OutboxDir)
	if err != nil {
		logger.Fatal("outbox init failed", zap.Error(err))
	}
	defer ob.Close()

	// ---------------- Fabric ----------------

	fabric, err := engine.NewFabric(engine.FabricConfig{
		Assignment:      cfg.Engine.Assignment(),
		Cores:           cfg.Engine.CoreMap(),
		IngressCapacity: cfg.Engine.IngressCapacity,
		EgressCapacity:  cfg.Engine.EgressCapacity,
		RetireCapacity:  cfg.Engine.RetireCapacity,
		SpinBudget:      cfg.Engine.SpinBudget,
		SnapshotDir:     cfg.Durability.SnapshotDir,
		Book:            bookConfig(cfg.Engine),
	}, logger)
	if err != nil {
		logger.Fatal("fabric init failed", zap.Error(err))
	}
	fabric.Start()

	// ---------------- Gateway ----------------

	server := httpserver.NewServer(fabric, logger)

	// ---------------- Publisher ----------------

	var producer *kafka.Producer
	if cfg.Kafka.EnableFast {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := engine.NewPublisher(fabric.Shards(), jnl, ob, producer, server.Hub(), logger)
	pubDone := make(chan struct{})
	go func() {
		pub.Run(ctx)
		close(pubDone)
	}()

	// ---------------- Background Jobs ----------------

	if cfg.Kafka.EnableReplay {
		bc, err := broadcaster.New(ob, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ReplayEvery, logger)
		if err != nil {
			logger.Fatal("broadcaster init failed", zap.Error(err))
		}
		defer bc.Close()
		bc.Start(ctx)
	}

	go func() {
		ticker := time.NewTicker(cfg.Durability.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fabric.SnapshotAll()
			}
		}
	}()

	// ---------------- Serve ----------------

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start(cfg.HTTPAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("gateway exited", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown", zap.Error(err))
	}

	// Final snapshot so restart recovers the books without replay. The
	// shards stop before the publisher is canceled, so its final sweep
	// sees every report they emitted while draining.
	fabric.SnapshotAll()
	fabric.Stop()
	cancel()
	<-pubDone
}

func bookConfig(e config.Engine) orderbook.Config {
	cfg := orderbook.Config{}
	switch e.Alloc {
	case "prorata":
		cfg.Alloc = orderbook.AllocProRata
	case "hybrid":
		cfg.Alloc = orderbook.AllocHybrid
		cfg.FIFOShare = int64(e.FIFOShare)
	default:
		cfg.Alloc = orderbook.AllocFIFO
	}
	switch e.SelfTrade {
	case "cancel-resting":
		cfg.SelfTrade = orderbook.SelfTradeCancelResting
	case "reject-taker":
		cfg.SelfTrade = orderbook.SelfTradeRejectTaker
	default:
		cfg.SelfTrade = orderbook.SelfTradeAllow
	}
	return cfg
}
