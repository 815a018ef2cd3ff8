package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
)

// StatusOK is the status of every batch record written by preprocessing.
const StatusOK = "OK"

// BatchRecord is the single JSON line written per preprocessing run.
type BatchRecord struct {
	Status   string                          `json:"status"`
	Stations []domain.Station                `json:"stations"`
	Metadata Metadata                        `json:"metadata"`
	Hourly   map[string][]domain.Observation `json:"hourly"`
}

// Metadata is the output field table, rendered as a JSON object in
// declaration order.
type Metadata []config.MetadataField

// MarshalJSON writes the fields as an ordered object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Description)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode renders the record as one newline-terminated JSON line.
func (b BatchRecord) Encode() ([]byte, error) {
	if b.Stations == nil {
		b.Stations = []domain.Station{}
	}
	if b.Hourly == nil {
		b.Hourly = map[string][]domain.Observation{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode batch record: %w", err)
	}
	return append(data, '\n'), nil
}

// BatchFileName returns "<prefix>_<YYYYMMDD_HHMMSS>.jsonl" for t in UTC.
func BatchFileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.jsonl", prefix, t.UTC().Format("20060102_150405"))
}
