package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greencoop/weather-etl/internal/pipeline"
	"github.com/greencoop/weather-etl/internal/quality"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testPublisher(w messageWriter) *Publisher {
	return &Publisher{writer: w, runID: "run-1", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublishReport(t *testing.T) {
	w := &recordingWriter{}
	p := testPublisher(w)
	report := &quality.Report{
		Timestamp:   "2024-10-05T12:00:00Z",
		Collections: quality.Collections{ObservationsTotal: 10},
		Alerts: []quality.Alert{
			{Check: quality.CheckDuplicates, Message: "High duplicate rate: 10.0%"},
			{Check: quality.CheckNullPercentages, Message: "High null rate for pluie_1h: 40.0%"},
		},
		Checks: quality.Checks{DateCoverage: &quality.DateCoverage{Status: quality.StatusWarn}},
	}

	require.NoError(t, p.PublishReport(context.Background(), report))
	require.Len(t, w.msgs, 3)

	assert.Equal(t, []byte(quality.CheckDuplicates), w.msgs[0].Key)
	assert.Equal(t, EventQualityAlert, header(w.msgs[0], "event_type"))
	assert.Equal(t, "run-1", header(w.msgs[0], "run_id"))
	assert.JSONEq(t, `{"run_id":"run-1","check":"duplicates","message":"High duplicate rate: 10.0%","generated_at":"2024-10-05T12:00:00Z"}`, string(w.msgs[0].Value))

	summary := w.msgs[2]
	assert.Equal(t, EventQualitySummary, header(summary, "event_type"))
	assert.Contains(t, string(summary.Value), `"alerts":2`)
	assert.Contains(t, string(summary.Value), `"status":"WARN"`)
}

func TestPublishReport_WriteError(t *testing.T) {
	p := testPublisher(&recordingWriter{err: errors.New("leader not available")})
	err := p.PublishReport(context.Background(), &quality.Report{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish quality report")
}

func TestPublishIngestion(t *testing.T) {
	w := &recordingWriter{}
	p := testPublisher(w)
	require.NoError(t, p.PublishIngestion(context.Background(), pipeline.LoadStats{ObservationsInserted: 42, Files: 1}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, EventIngestionSummary, header(w.msgs[0], "event_type"))
	assert.Contains(t, string(w.msgs[0].Value), `"observations_inserted":42`)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
