package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"matchbook/api/rest"
	"matchbook/api/stream"
	"matchbook/infra/config"
	"matchbook/infra/ident"
	"matchbook/infra/kafka"
	"matchbook/infra/outbox"
	"matchbook/infra/sequence"
	"matchbook/jobs/broadcaster"
	"matchbook/jobs/marketdata"
	"matchbook/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := service.New(cfg, logger, ident.New(), sequence.New(0))

	ws := stream.NewServer(logger)
	eng.OnTrade(ws.OnTrade)
	eng.OnBookUpdate(ws.OnBookUpdate)

	if len(cfg.KafkaBrokers) > 0 {
		box, err := outbox.Open(cfg.OutboxDir)
		if err != nil {
			logger.Fatalw("outbox open failed", "dir", cfg.OutboxDir, "err", err)
		}
		defer box.Close()

		bc, err := broadcaster.New(box, cfg.KafkaBrokers, cfg.TradeTopic, logger)
		if err != nil {
			logger.Fatalw("broadcaster init failed", "err", err)
		}
		defer bc.Close()
		eng.OnTrade(bc.Enqueue)
		bc.Start(ctx)

		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.DepthTopic)
		defer producer.Close()
		pub := marketdata.New(producer, 1024, logger)
		eng.OnBookUpdate(pub.Enqueue)
		pub.Start(ctx)
	} else {
		logger.Infow("KAFKA_BROKERS not set, running without kafka fan-out")
	}

	go func() {
		logger.Infow("stream listening", "addr", cfg.StreamAddr)
		if err := http.ListenAndServe(cfg.StreamAddr, ws.Routes()); err != nil {
			logger.Fatalw("stream server failed", "err", err)
		}
	}()

	app := fiber.New()
	rest.Register(app, eng, cfg, logger)

	go func() {
		<-ctx.Done()
		logger.Infow("shutting down")
		_ = app.Shutdown()
	}()

	logger.Infow("rest listening", "addr", cfg.RESTAddr)
	if err := app.Listen(cfg.RESTAddr); err != nil {
		logger.Fatalw("rest server failed", "err", err)
	}
}

func newLogger(level string) *zap.SugaredLogger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return l.Sugar()
}
