package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"planner/internal/amqp"
	"planner/internal/cli"
	"planner/internal/log"
	"planner/internal/worker"
)

const reportInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", log.ComponentAudit), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentAudit)

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Session audit needs a broker", errors.New("AMQP_URL is not set"))
	}

	logger.Info("Starting session-audit",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	audit := worker.NewAuditWorker(logger.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeWithRetry(gctx, func(msg *amqp.SessionEventMessage) error {
			return audit.HandleSessionEvent(gctx, msg)
		})
	})
	g.Go(func() error {
		return audit.ReportEvery(gctx, reportInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Session audit stopped with error", "error", err)
		return
	}

	s := audit.Stats()
	logger.Info("Session audit stopped", "unknown", s.Unknown, "last_seen", s.LastSeen)
}
