// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/audience-campaigns/internal/config"
	"github.com/unclebandit/audience-campaigns/internal/db"
	"github.com/unclebandit/audience-campaigns/internal/logger"
	"github.com/unclebandit/audience-campaigns/internal/queue"
	"github.com/unclebandit/audience-campaigns/internal/repository"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg).With("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer conn.Close()

	q, err := queue.Open(ctx, cfg.Queue, log)
	if err != nil {
		return err
	}
	defer q.Close()

	w := newWorker(cfg, &repository.CustomerRepository{DB: conn}, q, log)

	log.Info("worker running, waiting for tasks", "queue", cfg.Queue.TaskQueue, "success_rate", cfg.Worker.SuccessRate)
	return q.Consume(ctx, cfg.Queue.TaskQueue, w.Handle)
}

func newWorker(cfg config.Config, customers repository.CustomerRepositoryInterface, receipts queue.Producer, log *slog.Logger) *service.Worker {
	w := service.NewWorker(customers, receipts, cfg.Queue.ReceiptQueue, service.MockSender(cfg.Worker.SuccessRate))
	w.Log = log
	return w
}
