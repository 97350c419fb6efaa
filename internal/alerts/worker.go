// Package alerts turns high-risk prediction events into alert events for
// downstream consumers (case management, notification fan-out).
package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// DefaultThreshold is the fraud probability above which an alert is raised.
const DefaultThreshold = 0.7

// Alert is the payload published on the alert topic.
type Alert struct {
	ID               string           `json:"id"`
	TransactionID    string           `json:"transactionId"`
	FraudProbability float64          `json:"fraudProbability"`
	Confidence       float64          `json:"confidence"`
	RiskLevel        domain.RiskLevel `json:"riskLevel"`
	Decision         domain.Decision  `json:"decision"`
	Level            string           `json:"level"` // "high" or "medium"
	CreatedAt        time.Time        `json:"createdAt"`
}

// Worker consumes prediction events and republishes alerts for transactions
// above the threshold.
type Worker struct {
	bus       domain.EventBus
	threshold float64
	logger    *slog.Logger

	sub domain.Subscription
}

// NewWorker creates an alert worker. A non-positive threshold falls back to
// the default.
func NewWorker(bus domain.EventBus, threshold float64, logger *slog.Logger) *Worker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		bus:       bus,
		threshold: threshold,
		logger:    logger,
	}
}

// Start subscribes to the prediction topic.
func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.bus.Subscribe(ctx, domain.TopicPredictionRecorded, w.handle)
	if err != nil {
		return err
	}
	w.sub = sub
	w.logger.Info("alert worker started", "threshold", w.threshold)
	return nil
}

// Stop unsubscribes from the bus.
func (w *Worker) Stop() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Unsubscribe()
}

func (w *Worker) handle(ctx context.Context, msg *domain.Message) error {
	var event domain.PredictionRecorded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		w.logger.Warn("malformed prediction event", "error", err)
		return nil
	}

	if event.FraudProbability < w.threshold {
		return nil
	}

	level := "medium"
	if event.FraudProbability > 0.9 {
		level = "high"
	}

	alert := Alert{
		ID:               uuid.NewString(),
		TransactionID:    event.TransactionID,
		FraudProbability: event.FraudProbability,
		Confidence:       event.Confidence,
		RiskLevel:        event.RiskLevel,
		Decision:         event.Decision,
		Level:            level,
		CreatedAt:        time.Now().UTC(),
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		w.logger.Warn("alert marshal failed", "error", err)
		return nil
	}
	if err := w.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
		w.logger.Error("alert publish failed",
			"transactionId", event.TransactionID,
			"error", err,
		)
		return err
	}

	w.logger.Info("fraud alert raised",
		"alertId", alert.ID,
		"transactionId", alert.TransactionID,
		"probability", alert.FraudProbability,
		"level", alert.Level,
	)
	return nil
}
