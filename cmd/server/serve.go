// cmd/server/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/audience-campaigns/internal/config"
	"github.com/unclebandit/audience-campaigns/internal/metrics"
	"github.com/unclebandit/audience-campaigns/internal/queue"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the delivery receipt consumer",
	RunE:  runServe,
}

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	q, err := queue.Open(ctx, cfg.Queue, log)
	if err != nil {
		return err
	}
	defer q.Close()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	outcomes := &service.OutcomeService{
		DeliveryLogRepo: repos.DeliveryLogs,
		CampaignRepo:    repos.Campaigns,
		AudienceRepo:    repos.Audiences,
		Metrics:         m,
		Log:             log,
	}
	services := Services{
		Audiences: &service.AudienceService{
			CustomerRepo: repos.Customers,
			AudienceRepo: repos.Audiences,
			Metrics:      m,
			Log:          log,
		},
		Customers: &service.CustomerService{CustomerRepo: repos.Customers},
		Campaigns: &service.CampaignService{
			CampaignRepo:    repos.Campaigns,
			AudienceRepo:    repos.Audiences,
			DeliveryLogRepo: repos.DeliveryLogs,
			Queue:           q,
			TaskQueue:       cfg.Queue.TaskQueue,
			Concurrency:     cfg.Dispatch.Concurrency,
			Metrics:         m,
			Log:             log,
		},
		Listing: &service.ListingService{
			CampaignRepo:    repos.Campaigns,
			DeliveryLogRepo: repos.DeliveryLogs,
			Outcomes:        outcomes,
			Log:             log,
		},
		Metrics: m,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(services),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "queue", cfg.Queue.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return q.Consume(gctx, cfg.Queue.ReceiptQueue, outcomes.HandleReceipt)
	})

	if cfg.Queue.Driver == config.QueueMemory {
		// No external worker can reach an in-process queue.
		worker := service.NewWorker(repos.Customers, q, cfg.Queue.ReceiptQueue, service.MockSender(cfg.Worker.SuccessRate))
		worker.Log = log
		g.Go(func() error {
			return q.Consume(gctx, cfg.Queue.TaskQueue, worker.Handle)
		})
	}

	if cfg.Reconcile.Interval > 0 {
		reconciler := &service.Reconciler{
			DeliveryLogRepo: repos.DeliveryLogs,
			Queue:           q,
			TaskQueue:       cfg.Queue.TaskQueue,
			StaleAfter:      cfg.Reconcile.StaleAfter,
			BatchSize:       cfg.Reconcile.BatchSize,
			Metrics:         m,
			Log:             log,
		}
		g.Go(func() error {
			reconciler.Run(gctx, cfg.Reconcile.Interval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
