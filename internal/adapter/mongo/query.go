package mongo

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/greencoop/weather-etl/internal/domain"
)

var numericTypes = bson.A{"int", "long", "double", "decimal"}

// CountObservations counts every observation document.
func (s *Store) CountObservations(ctx context.Context) (int64, error) {
	return s.count(ctx, CollectionObservations, bson.D{})
}

// CountStations counts every station document.
func (s *Store) CountStations(ctx context.Context) (int64, error) {
	return s.count(ctx, CollectionStations, bson.D{})
}

// CountSchemaFields counts every schema metadata document.
func (s *Store) CountSchemaFields(ctx context.Context) (int64, error) {
	return s.count(ctx, CollectionSchemaMetadata, bson.D{})
}

// CountNull counts observations where field is null or missing.
func (s *Store) CountNull(ctx context.Context, field string) (int64, error) {
	return s.count(ctx, CollectionObservations, bson.D{{Key: field, Value: nil}})
}

func (s *Store) count(ctx context.Context, coll string, filter bson.D) (int64, error) {
	n, err := s.db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", coll, err)
	}
	return n, nil
}

func duplicateKeysPipeline() bson.A {
	return bson.A{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "station", Value: "$" + domain.FieldStationID},
				{Key: "time", Value: "$" + domain.FieldTimestamp},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$match", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$gt", Value: 1}}}}}},
		bson.D{{Key: "$count", Value: "groups"}},
	}
}

// CountDuplicateKeys counts (id_station, dh_utc) groups with more than one document.
func (s *Store) CountDuplicateKeys(ctx context.Context) (int64, error) {
	var rows []struct {
		Groups int64 `bson:"groups"`
	}
	if err := s.aggregate(ctx, duplicateKeysPipeline(), &rows); err != nil {
		return 0, fmt.Errorf("count duplicate keys: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Groups, nil
}

func fieldStatsPipeline(field string) bson.A {
	ref := "$" + field
	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: numericTypes}}}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "min", Value: bson.D{{Key: "$min", Value: ref}}},
			{Key: "max", Value: bson.D{{Key: "$max", Value: ref}}},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: ref}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

// FieldStats aggregates min, max, avg and count over numeric values of field.
// A zero Count means no numeric value exists.
func (s *Store) FieldStats(ctx context.Context, field string) (domain.FieldStats, error) {
	var rows []struct {
		Min   float64 `bson:"min"`
		Max   float64 `bson:"max"`
		Avg   float64 `bson:"avg"`
		Count int64   `bson:"count"`
	}
	if err := s.aggregate(ctx, fieldStatsPipeline(field), &rows); err != nil {
		return domain.FieldStats{}, fmt.Errorf("aggregate %s stats: %w", field, err)
	}
	if len(rows) == 0 {
		return domain.FieldStats{}, nil
	}
	r := rows[0]
	return domain.FieldStats{Min: r.Min, Max: r.Max, Avg: r.Avg, Count: r.Count}, nil
}

// DistinctCount counts distinct non-null values of field in observations.
func (s *Store) DistinctCount(ctx context.Context, field string) (int64, error) {
	values, err := s.observations().Distinct(ctx, field, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("distinct %s: %w", field, err)
	}
	var n int64
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n, nil
}

func typeCountsPipeline(field string) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}}}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$type", Value: "$" + field}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

// TypeCounts tallies the BSON type names of field across observations that carry it.
func (s *Store) TypeCounts(ctx context.Context, field string) (map[string]int64, error) {
	var rows []struct {
		Type  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := s.aggregate(ctx, typeCountsPipeline(field), &rows); err != nil {
		return nil, fmt.Errorf("aggregate %s types: %w", field, err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Type] = r.Count
	}
	return out, nil
}

func timestampSpanPipeline() bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: domain.FieldTimestamp, Value: bson.D{{Key: "$type", Value: "string"}}}}}},
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$" + domain.FieldTimestamp}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "min", Value: bson.D{{Key: "$min", Value: "$_id"}}},
			{Key: "max", Value: bson.D{{Key: "$max", Value: "$_id"}}},
			{Key: "distinct", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

// TimestampSpan returns the lexical bounds of dh_utc and its distinct value count.
func (s *Store) TimestampSpan(ctx context.Context) (domain.TimestampSpan, error) {
	var rows []struct {
		Min      string `bson:"min"`
		Max      string `bson:"max"`
		Distinct int64  `bson:"distinct"`
	}
	if err := s.aggregate(ctx, timestampSpanPipeline(), &rows); err != nil {
		return domain.TimestampSpan{}, fmt.Errorf("aggregate timestamp span: %w", err)
	}
	if len(rows) == 0 {
		return domain.TimestampSpan{}, nil
	}
	r := rows[0]
	return domain.TimestampSpan{Min: r.Min, Max: r.Max, Distinct: r.Distinct}, nil
}

func (s *Store) aggregate(ctx context.Context, pipeline bson.A, out any) error {
	cur, err := s.observations().Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// StationIDs returns every station identifier in ascending order.
func (s *Store) StationIDs(ctx context.Context) ([]string, error) {
	values, err := s.stations().Distinct(ctx, domain.FieldStationID, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list station ids: %w", err)
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ObservationsBetween fetches the observations of one station whose dh_utc
// lies in [from, to], compared as strict UTC timestamp strings.
func (s *Store) ObservationsBetween(ctx context.Context, stationID, from, to string) ([]domain.Observation, error) {
	filter := bson.D{
		{Key: domain.FieldStationID, Value: stationID},
		{Key: domain.FieldTimestamp, Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}},
	}
	cur, err := s.observations().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: domain.FieldTimestamp, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find observations of %s: %w", stationID, err)
	}
	var out []domain.Observation
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("read observations of %s: %w", stationID, err)
	}
	return out, nil
}
