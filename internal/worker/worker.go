// Package worker provides async calculation history processing for the
// distributed profile.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
)

// Worker consumes completed calculations from the EventBus, persists them,
// and derives market data points from winning-range results so future
// benchmarks can learn from the shop's own pricing history.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// DeriveMarketData controls whether completed calculations are folded
	// back into the market_records table.
	DeriveMarketData bool
}

// NewWorker creates a new async history worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins consuming completed calculations.
func (w *Worker) Start(cfg Config) error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicCalculationCompleted, func(ctx context.Context, msg *domain.Message) error {
		return w.processCalculation(ctx, msg, cfg.DeriveMarketData)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("history worker started",
		"topic", domain.TopicCalculationCompleted,
	)

	return nil
}

// processCalculation persists one completed calculation.
func (w *Worker) processCalculation(ctx context.Context, msg *domain.Message, deriveMarketData bool) error {
	start := time.Now()

	var rec domain.CalculationRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		slog.Error("failed to parse calculation record",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("processing calculation record",
		"calculation_id", rec.ID,
		"region", rec.Region,
	)

	if w.repo != nil {
		if err := w.repo.SaveCalculation(ctx, &rec); err != nil {
			slog.Error("failed to save calculation",
				"calculation_id", rec.ID,
				"error", err,
			)
			return err
		}
	}

	// Fold the result back into market history. Only records with a region
	// and a per-unit cost are usable as benchmark points.
	if deriveMarketData && w.repo != nil && rec.Region != "" && rec.CostPerSquareFoot > 0 {
		marketRec := &domain.MarketDataRecord{
			ID:            uuid.New().String(),
			Region:        rec.Region,
			Value:         rec.CostPerSquareFoot,
			Unit:          "sqft",
			ProjectType:   rec.ProjectType,
			Source:        "internal:" + rec.ID,
			EffectiveDate: rec.CreatedAt,
		}
		if err := w.repo.SaveMarketRecord(ctx, marketRec); err != nil {
			slog.Error("failed to derive market record",
				"calculation_id", rec.ID,
				"error", err,
			)
		} else if err := w.bus.Publish(ctx, domain.TopicMarketDataUpdated, msg.Payload); err != nil {
			slog.Error("failed to publish market data update",
				"calculation_id", rec.ID,
				"error", err,
			)
		}
	}

	slog.Info("calculation record processed",
		"calculation_id", rec.ID,
		"region", rec.Region,
		"method", rec.Method,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("history worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
