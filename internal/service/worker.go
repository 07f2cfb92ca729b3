// internal/service/worker.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/queue"
	"github.com/unclebandit/audience-campaigns/internal/repository"
)

// SendFunc delivers one rendered message to a customer.
type SendFunc func(ctx context.Context, c *model.Customer, msg string) error

var ErrMockSendFailed = errors.New("mock sending failed")

// MockSender simulates a provider that succeeds with the given probability.
func MockSender(successRate float64) SendFunc {
	return func(ctx context.Context, c *model.Customer, msg string) error {
		if rand.Float64() < successRate {
			return nil
		}
		return ErrMockSendFailed
	}
}

// Worker consumes delivery tasks, renders and sends each message, and
// publishes a receipt with the outcome. It plays the external delivery
// provider in local deployments.
type Worker struct {
	CustomerRepo repository.CustomerRepositoryInterface
	Receipts     queue.Producer
	ReceiptQueue string
	Send         SendFunc
	Log          *slog.Logger
}

func NewWorker(customers repository.CustomerRepositoryInterface, receipts queue.Producer, receiptQueue string, send SendFunc) *Worker {
	return &Worker{
		CustomerRepo: customers,
		Receipts:     receipts,
		ReceiptQueue: receiptQueue,
		Send:         send,
	}
}

func (w *Worker) logger() *slog.Logger {
	if w.Log == nil {
		return slog.Default()
	}
	return w.Log
}

// Handle processes one task payload. Only a failure to publish the receipt
// is returned, so the task is redelivered instead of silently lost.
func (w *Worker) Handle(ctx context.Context, payload []byte) error {
	var task model.DeliveryTask
	if err := json.Unmarshal(payload, &task); err != nil {
		w.logger().WarnContext(ctx, "dropping malformed delivery task", "error", err)
		return nil
	}

	receipt := model.DeliveryReceipt{DeliveryLogID: task.DeliveryLogID, Status: model.StatusSent}

	customer, err := w.CustomerRepo.GetByID(ctx, task.CustomerID)
	switch {
	case err != nil:
		return fmt.Errorf("load customer %d: %w", task.CustomerID, err)
	case customer == nil:
		receipt.Status = model.StatusFailed
		receipt.Error = "customer not found"
	default:
		rendered := RenderTemplate(task.Message, CustomerPlaceholders(customer))
		if err := w.Send(ctx, customer, rendered); err != nil {
			receipt.Status = model.StatusFailed
			receipt.Error = err.Error()
		}
	}

	body, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if err := w.Receipts.Enqueue(ctx, w.ReceiptQueue, body); err != nil {
		return fmt.Errorf("publish receipt for delivery %d: %w", task.DeliveryLogID, err)
	}

	w.logger().DebugContext(ctx, "delivery attempted", "delivery_log_id", task.DeliveryLogID, "status", receipt.Status)
	return nil
}
