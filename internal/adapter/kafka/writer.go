// Package kafka publishes quality alerts and run summaries to Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/pipeline"
	"github.com/greencoop/weather-etl/internal/quality"
)

// Event types carried in the event_type header.
const (
	EventQualityAlert     = "quality_alert"
	EventQualitySummary   = "quality_summary"
	EventIngestionSummary = "ingestion_summary"
)

// messageWriter is the subset of *kafkago.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces run events to the alert topic.
type Publisher struct {
	writer messageWriter
	runID  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured alert topic.
func NewPublisher(cfg *config.Config, runID string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, runID: runID, logger: logger}
}

type alertEvent struct {
	RunID       string `json:"run_id"`
	Check       string `json:"check"`
	Message     string `json:"message"`
	GeneratedAt string `json:"generated_at"`
}

type qualitySummary struct {
	RunID        string                `json:"run_id"`
	GeneratedAt  string                `json:"generated_at"`
	Collections  quality.Collections   `json:"collections"`
	Alerts       int                   `json:"alerts"`
	DateCoverage *quality.DateCoverage `json:"date_coverage,omitempty"`
}

type ingestionSummary struct {
	RunID       string             `json:"run_id"`
	PublishedAt string             `json:"published_at"`
	Stats       pipeline.LoadStats `json:"stats"`
}

// PublishReport writes one message per alert followed by a summary message,
// in a single WriteMessages call.
func (p *Publisher) PublishReport(ctx context.Context, r *quality.Report) error {
	msgs := make([]kafkago.Message, 0, len(r.Alerts)+1)
	for _, a := range r.Alerts {
		msg, err := p.message(EventQualityAlert, a.Check, alertEvent{
			RunID:       p.runID,
			Check:       a.Check,
			Message:     a.Message,
			GeneratedAt: r.Timestamp,
		})
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	summary, err := p.message(EventQualitySummary, p.runID, qualitySummary{
		RunID:        p.runID,
		GeneratedAt:  r.Timestamp,
		Collections:  r.Collections,
		Alerts:       len(r.Alerts),
		DateCoverage: r.Checks.DateCoverage,
	})
	if err != nil {
		return err
	}
	msgs = append(msgs, summary)

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish quality report: %w", err)
	}
	p.logger.Info("quality report published", "alerts", len(r.Alerts))
	return nil
}

// PublishIngestion writes the load totals of a run.
func (p *Publisher) PublishIngestion(ctx context.Context, stats pipeline.LoadStats) error {
	msg, err := p.message(EventIngestionSummary, p.runID, ingestionSummary{
		RunID:       p.runID,
		PublishedAt: domain.NowTimestamp(),
		Stats:       stats,
	})
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish ingestion summary: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// message marshals v into a Kafka message keyed by key.
func (p *Publisher) message(eventType, key string, v any) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s: %w", eventType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "run_id", Value: []byte(p.runID)},
		},
	}, nil
}
