package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greencoop/weather-etl/internal/adapter/blob"
	"github.com/greencoop/weather-etl/internal/adapter/memory"
	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/observability"
	"github.com/greencoop/weather-etl/internal/pipeline"
	"github.com/greencoop/weather-etl/internal/source"
)

func ptr[T any](v T) *T { return &v }

type stubAdapter struct {
	name string
	res  source.Result
	err  error
}

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Read(context.Context) (source.Result, error) { return s.res, s.err }

func stubFactory(adapters map[string]stubAdapter) pipeline.AdapterFactory {
	return func(src config.Source) (source.Adapter, error) {
		a, ok := adapters[src.ID]
		if !ok {
			return nil, source.ErrUnknownSourceType
		}
		return a, nil
	}
}

type failingStore struct {
	blob.Store
	checkErr error
}

func (f failingStore) Check(context.Context) error { return f.checkErr }

func obs(id, ts string, temp *float64) domain.Observation {
	return domain.Observation{StationID: id, Timestamp: ts, Temperature: temp}
}

func testSources() *config.Sources {
	return &config.Sources{
		Sources: []config.Source{{ID: "wu"}, {ID: "ic"}, {ID: "broken"}, {ID: "missing"}},
		OutputMetadata: []config.MetadataField{
			{Name: "id_station", Description: "Station identifier"},
			{Name: "dh_utc", Description: "UTC timestamp"},
		},
	}
}

func testAdapters() map[string]stubAdapter {
	return map[string]stubAdapter{
		"wu": {name: "weather_underground", res: source.Result{
			Stations: []domain.Station{{ID: "S1", Name: ptr("first")}},
			Hourly: map[string][]domain.Observation{"S1": {
				obs("S1", "2024-10-01T00:00:00Z", ptr(10.0)),
				obs("S1", "2024-10-01T01:00:00Z", nil),
			}},
		}},
		"ic": {name: "infoclimat", res: source.Result{
			Stations: []domain.Station{{ID: "S1", Name: ptr("second")}, {ID: "S2"}},
			Hourly: map[string][]domain.Observation{
				"S1": {obs("S1", "2024-10-01T02:00:00Z", ptr(11.0))},
				"S2": {obs("S2", "2024-10-01T00:00:00Z", ptr(12.0))},
			},
		}},
		"broken": {name: "broken", err: errors.New("corrupt workbook")},
	}
}

func TestPreprocessor_RunLocal(t *testing.T) {
	freezeClock(t, time.Date(2024, 10, 2, 8, 30, 15, 0, time.UTC))
	dir := t.TempDir()
	metrics := observability.NewMetricsForTesting()

	p := pipeline.NewPreprocessor(pipeline.PreprocessOptions{
		Sources:    testSources(),
		NewAdapter: stubFactory(testAdapters()),
		Fallback:   blob.NewLocal(dir),
		Prefix:     "data",
	}, discardLogger(), metrics)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data_20241002_083015.jsonl"), res.Location)
	assert.Equal(t, 2, res.SucceededCount)
	assert.Equal(t, []string{"broken", "missing"}, res.FailedSources)
	assert.Equal(t, 2, res.Stations)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 1, res.Filtered)

	data, err := os.ReadFile(res.Location)
	require.NoError(t, err)
	require.True(t, bytes.HasSuffix(data, []byte("\n")))
	assert.Equal(t, 1, bytes.Count(data, []byte("\n")))
	assert.Contains(t, string(data), `"metadata":{"id_station":"Station identifier","dh_utc":"UTC timestamp"}`)

	var rec struct {
		Status   string                       `json:"status"`
		Stations []map[string]any             `json:"stations"`
		Hourly   map[string][]json.RawMessage `json:"hourly"`
	}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "OK", rec.Status)
	require.Len(t, rec.Stations, 2)
	assert.Equal(t, "first", rec.Stations[0]["name"], "first-seen station wins")
	assert.Len(t, rec.Hourly["S1"], 2)
	assert.Len(t, rec.Hourly["S2"], 1)
}

func TestPreprocessor_OutputFailureFallsBack(t *testing.T) {
	freezeClock(t, time.Date(2024, 10, 2, 8, 30, 15, 0, time.UTC))
	dir := t.TempDir()
	unreachable := failingStore{Store: blob.NewLocal(t.TempDir()), checkErr: errors.New("access denied")}

	p := pipeline.NewPreprocessor(pipeline.PreprocessOptions{
		Sources:    testSources(),
		NewAdapter: stubFactory(testAdapters()),
		Output:     unreachable,
		Fallback:   blob.NewLocal(dir),
		Prefix:     "data",
	}, discardLogger(), observability.NewMetricsForTesting())

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data_20241002_083015.jsonl"), res.Location)
}

func TestPreprocessor_CompressedRoundTrip(t *testing.T) {
	freezeClock(t, time.Date(2024, 10, 2, 8, 30, 15, 0, time.UTC))
	files := blob.NewLocal(t.TempDir())

	p := pipeline.NewPreprocessor(pipeline.PreprocessOptions{
		Sources:    testSources(),
		NewAdapter: stubFactory(testAdapters()),
		Output:     files,
		Prefix:     "data",
		Compress:   true,
	}, discardLogger(), observability.NewMetricsForTesting())

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Location, "data_20241002_083015.jsonl.zst"))

	store := memory.New()
	ing := pipeline.NewIngester(files, newTestLoader(store), discardLogger())
	stats, err := ing.IngestAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 2, stats.StationsInserted)
	assert.Equal(t, 3, stats.ObservationsInserted)
	o, ok := store.Observation("S2", "2024-10-01T00:00:00Z")
	require.True(t, ok)
	assert.Equal(t, "data_20241002_083015", o.Source)
}

type geocoderStub struct{}

func (geocoderStub) ForwardGeocode(context.Context, string) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{}, errors.New("unused")
}

func (geocoderStub) ReverseGeocode(context.Context, float64, float64) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{Region: "Hauts-de-France", PlaceName: "Lille"}, nil
}

func TestPreprocessor_EnrichesStations(t *testing.T) {
	dir := t.TempDir()
	adapters := map[string]stubAdapter{"wu": {res: source.Result{
		Stations: []domain.Station{{ID: "S1", Latitude: ptr(50.6), Longitude: ptr(3.1)}},
		Hourly:   map[string][]domain.Observation{"S1": {obs("S1", "2024-10-01T00:00:00Z", ptr(1.0))}},
	}}}
	p := pipeline.NewPreprocessor(pipeline.PreprocessOptions{
		Sources:    &config.Sources{Sources: []config.Source{{ID: "wu"}}},
		NewAdapter: stubFactory(adapters),
		Geocoder:   geocoderStub{},
		Fallback:   blob.NewLocal(dir),
		Prefix:     "data",
	}, discardLogger(), observability.NewMetricsForTesting())

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	data, err := os.ReadFile(res.Location)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"Hauts-de-France"`)
	assert.Contains(t, string(data), `"city":"Lille"`)
}

func TestMerge(t *testing.T) {
	adapters := testAdapters()
	merged := pipeline.Merge([]source.Result{adapters["wu"].res, adapters["ic"].res})

	require.Len(t, merged.Stations, 2)
	assert.Equal(t, "first", *merged.Stations[0].Name)
	assert.Equal(t, "S2", merged.Stations[1].ID)
	require.Len(t, merged.Hourly["S1"], 3)
	assert.Equal(t, "2024-10-01T02:00:00Z", merged.Hourly["S1"][2].Timestamp)
}

func TestBatchFileName(t *testing.T) {
	at := time.Date(2024, 1, 5, 23, 4, 9, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "weather_20240105_220409.jsonl", pipeline.BatchFileName("weather", at))
}

func TestBatchRecord_EncodeEmpty(t *testing.T) {
	data, err := pipeline.BatchRecord{Status: pipeline.StatusOK}.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"status":"OK","stations":[],"metadata":{},"hourly":{}}`+"\n", string(data))
}
