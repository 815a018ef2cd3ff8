package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greencoop/weather-etl/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func obs(station, ts string, temp *float64) domain.Observation {
	return domain.Observation{StationID: station, Timestamp: ts, Temperature: temp, Source: "test"}
}

func TestUpsertObservation_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()

	inserted, err := s.UpsertObservation(ctx, obs("X1", "2024-10-01T00:00:00Z", ptr(15.0)))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.UpsertObservation(ctx, obs("X1", "2024-10-01T00:00:00Z", ptr(16.0)))
	require.NoError(t, err)
	assert.False(t, inserted)

	got, ok := s.Observation("X1", "2024-10-01T00:00:00Z")
	require.True(t, ok)
	assert.Equal(t, 16.0, *got.Temperature)
	n, _ := s.CountObservations(ctx)
	assert.Equal(t, int64(1), n)
}

func TestUpsertObservation_ReplacesAllFields(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := obs("X1", "2024-10-01T00:00:00Z", ptr(15.0))
	first.Humidity = ptr(80.0)
	_, err := s.UpsertObservation(ctx, first)
	require.NoError(t, err)

	inserted, err := s.UpsertObservation(ctx, obs("X1", "2024-10-01T00:00:00Z", ptr(15.0)))
	require.NoError(t, err)
	assert.False(t, inserted)

	got, ok := s.Observation("X1", "2024-10-01T00:00:00Z")
	require.True(t, ok)
	assert.Nil(t, got.Humidity)
	assert.Equal(t, obs("X1", "2024-10-01T00:00:00Z", ptr(15.0)), got)
}

func TestUpsertStationAndSchema(t *testing.T) {
	ctx := context.Background()
	s := New()

	inserted, _ := s.UpsertStation(ctx, domain.Station{ID: "07015", Name: ptr("Lille")})
	assert.True(t, inserted)
	inserted, _ = s.UpsertStation(ctx, domain.Station{ID: "07015", Name: ptr("Lille-Lesquin")})
	assert.False(t, inserted)
	st, _ := s.Station("07015")
	assert.Equal(t, "Lille-Lesquin", *st.Name)

	inserted, _ = s.UpsertSchemaField(ctx, domain.SchemaField{FieldName: "temperature"})
	assert.True(t, inserted)
	inserted, _ = s.UpsertSchemaField(ctx, domain.SchemaField{FieldName: "temperature"})
	assert.False(t, inserted)

	stations, _ := s.CountStations(ctx)
	fields, _ := s.CountSchemaFields(ctx)
	assert.Equal(t, int64(1), stations)
	assert.Equal(t, int64(1), fields)
}

func TestCountDuplicateKeys(t *testing.T) {
	s := New()
	for i := 0; i < 7; i++ {
		s.Insert(obs("X1", fmt.Sprintf("2024-10-01T%02d:00:00Z", i), ptr(1.0)))
	}
	for i := 0; i < 3; i++ {
		s.Insert(obs("X2", "2024-10-01T00:00:00Z", ptr(1.0)))
	}

	n, err := s.CountDuplicateKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	total, _ := s.CountObservations(context.Background())
	assert.Equal(t, int64(10), total)
}

func TestAggregations(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Insert(
		obs("X1", "2024-10-01T00:00:00Z", ptr(10.0)),
		obs("X1", "2024-10-02T00:00:00Z", ptr(20.0)),
		obs("X2", "2024-10-04T00:00:00Z", nil),
	)

	nulls, _ := s.CountNull(ctx, domain.FieldTemperature)
	assert.Equal(t, int64(1), nulls)

	stats, _ := s.FieldStats(ctx, domain.FieldTemperature)
	assert.Equal(t, domain.FieldStats{Min: 10, Max: 20, Avg: 15, Count: 2}, stats)

	empty, _ := s.FieldStats(ctx, domain.FieldPressure)
	assert.Equal(t, domain.FieldStats{}, empty)

	distinct, _ := s.DistinctCount(ctx, domain.FieldStationID)
	assert.Equal(t, int64(2), distinct)
	sources, _ := s.DistinctCount(ctx, domain.FieldSource)
	assert.Equal(t, int64(1), sources)

	types, _ := s.TypeCounts(ctx, domain.FieldTemperature)
	assert.Equal(t, map[string]int64{"double": 2, "null": 1}, types)

	span, _ := s.TimestampSpan(ctx)
	assert.Equal(t, domain.TimestampSpan{Min: "2024-10-01T00:00:00Z", Max: "2024-10-04T00:00:00Z", Distinct: 3}, span)
}

func TestTimestampSpan_Empty(t *testing.T) {
	span, err := New().TimestampSpan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TimestampSpan{}, span)
}

func TestObservationsBetween(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, o := range []domain.Observation{
		obs("X1", "2024-10-05T12:00:00Z", ptr(14.0)),
		obs("X1", "2024-10-04T23:59:59Z", ptr(13.0)),
		obs("X1", "2024-10-05T00:00:00Z", ptr(12.0)),
		obs("X1", "2024-10-05T23:59:59Z", ptr(11.0)),
		obs("X1", "2024-10-06T00:00:00Z", ptr(10.0)),
		obs("X2", "2024-10-05T06:00:00Z", ptr(9.0)),
	} {
		_, err := s.UpsertObservation(ctx, o)
		require.NoError(t, err)
	}

	got, err := s.ObservationsBetween(ctx, "X1", "2024-10-05T00:00:00Z", "2024-10-05T23:59:59Z")
	require.NoError(t, err)

	var stamps []string
	for _, o := range got {
		stamps = append(stamps, o.Timestamp)
	}
	assert.Equal(t, []string{"2024-10-05T00:00:00Z", "2024-10-05T12:00:00Z", "2024-10-05T23:59:59Z"}, stamps)
}

func TestStationIDs_Sorted(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"ILAMAD25", "07015", "IICHTE19"} {
		_, err := s.UpsertStation(ctx, domain.Station{ID: id})
		require.NoError(t, err)
	}

	ids, err := s.StationIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"07015", "IICHTE19", "ILAMAD25"}, ids)
}
