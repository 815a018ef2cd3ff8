//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greencoop/weather-etl/internal/adapter/kafka"
	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/pipeline"
	"github.com/greencoop/weather-etl/internal/quality"
)

const testAlertTopic = "test-quality-alerts"

type event struct {
	Key     string
	Headers map[string]string
	Body    map[string]any
}

func readEvent(ctx context.Context, t *testing.T, consumer *kafkago.Reader) event {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	return event{Key: string(msg.Key), Headers: headers, Body: body}
}

func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaAlertTopic: testAlertTopic}
	pub := kafka.NewPublisher(cfg, "run-42", discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	report := &quality.Report{
		Timestamp:   "2024-10-03T08:00:00Z",
		Collections: quality.Collections{ObservationsTotal: 10, StationsTotal: 2},
		Alerts: []quality.Alert{
			{Check: quality.CheckDuplicates, Message: "High duplicate rate: 10.0%"},
		},
	}
	require.NoError(t, pub.PublishReport(ctx, report))
	require.NoError(t, pub.PublishIngestion(ctx, pipeline.LoadStats{Files: 1, ObservationsInserted: 10}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testAlertTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	alert := readEvent(ctx, t, consumer)
	assert.Equal(t, kafka.EventQualityAlert, alert.Headers["event_type"])
	assert.Equal(t, "run-42", alert.Headers["run_id"])
	assert.Equal(t, quality.CheckDuplicates, alert.Key)
	assert.Equal(t, "High duplicate rate: 10.0%", alert.Body["message"])

	summary := readEvent(ctx, t, consumer)
	assert.Equal(t, kafka.EventQualitySummary, summary.Headers["event_type"])
	assert.InDelta(t, 1, summary.Body["alerts"], 0)

	ingestion := readEvent(ctx, t, consumer)
	assert.Equal(t, kafka.EventIngestionSummary, ingestion.Headers["event_type"])
	assert.Equal(t, "run-42", ingestion.Key)
}
