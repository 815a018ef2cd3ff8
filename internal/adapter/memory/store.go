// Package memory is an in-process store with the same replace-by-key
// semantics as the document store. It backs dry runs and tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/greencoop/weather-etl/internal/domain"
)

// Store keeps stations, observations and schema metadata in memory.
// Observations keep insertion order; Insert may add rows with duplicate keys.
type Store struct {
	mu           sync.RWMutex
	stations     map[string]domain.Station
	observations []domain.Observation
	obsIndex     map[domain.ObservationKey]int
	schema       map[string]domain.SchemaField
}

// New returns an empty store.
func New() *Store {
	return &Store{
		stations: make(map[string]domain.Station),
		obsIndex: make(map[domain.ObservationKey]int),
		schema:   make(map[string]domain.SchemaField),
	}
}

// UpsertStation replaces the station with the same ID or inserts it.
func (s *Store) UpsertStation(_ context.Context, st domain.Station) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.stations[st.ID]
	s.stations[st.ID] = st
	return !exists, nil
}

// UpsertObservation replaces the observation with the same key or appends it.
func (s *Store) UpsertObservation(_ context.Context, obs domain.Observation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.obsIndex[obs.Key()]; ok {
		s.observations[i] = obs
		return false, nil
	}
	s.obsIndex[obs.Key()] = len(s.observations)
	s.observations = append(s.observations, obs)
	return true, nil
}

// UpsertSchemaField replaces the metadata document with the same field name.
func (s *Store) UpsertSchemaField(_ context.Context, f domain.SchemaField) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.schema[f.FieldName]
	s.schema[f.FieldName] = f
	return !exists, nil
}

// Insert appends observations without key checks, the way a raw insert into
// a collection without a unique index would.
func (s *Store) Insert(obs ...domain.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		if _, ok := s.obsIndex[o.Key()]; !ok {
			s.obsIndex[o.Key()] = len(s.observations)
		}
		s.observations = append(s.observations, o)
	}
}

// Station returns a stored station.
func (s *Store) Station(id string) (domain.Station, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[id]
	return st, ok
}

// Observation returns a stored observation by key.
func (s *Store) Observation(stationID, timestamp string) (domain.Observation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.obsIndex[domain.ObservationKey{StationID: stationID, Timestamp: timestamp}]
	if !ok {
		return domain.Observation{}, false
	}
	return s.observations[i], true
}

// Observations returns a copy of all stored observations in insertion order.
func (s *Store) Observations() []domain.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Observation(nil), s.observations...)
}

// SchemaField returns a stored metadata document.
func (s *Store) SchemaField(name string) (domain.SchemaField, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.schema[name]
	return f, ok
}

// CheckReadiness always succeeds.
func (s *Store) CheckReadiness(context.Context) error { return nil }

// CountObservations returns the number of stored observations.
func (s *Store) CountObservations(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.observations)), nil
}

// CountStations returns the number of stored stations.
func (s *Store) CountStations(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.stations)), nil
}

// CountSchemaFields returns the number of schema metadata documents.
func (s *Store) CountSchemaFields(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.schema)), nil
}

// CountNull counts observations where field is null or absent.
func (s *Store) CountNull(_ context.Context, field string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, o := range s.observations {
		if o.Field(field) == nil {
			n++
		}
	}
	return n, nil
}

// CountDuplicateKeys counts (station, timestamp) groups holding more than one observation.
func (s *Store) CountDuplicateKeys(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.ObservationKey]int)
	for _, o := range s.observations {
		counts[o.Key()]++
	}
	var n int64
	for _, c := range counts {
		if c > 1 {
			n++
		}
	}
	return n, nil
}

// FieldStats aggregates the numeric non-null values of field.
func (s *Store) FieldStats(_ context.Context, field string) (domain.FieldStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.FieldStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, o := range s.observations {
		var v float64
		switch x := o.Field(field).(type) {
		case float64:
			v = x
		case int:
			v = float64(x)
		default:
			continue
		}
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
		sum += v
		stats.Count++
	}
	if stats.Count == 0 {
		return domain.FieldStats{}, nil
	}
	stats.Avg = sum / float64(stats.Count)
	return stats, nil
}

// DistinctCount counts distinct non-null values of field.
func (s *Store) DistinctCount(_ context.Context, field string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[any]struct{})
	for _, o := range s.observations {
		if v := o.Field(field); v != nil {
			seen[v] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

// TypeCounts tallies the runtime type tags of field across observations.
func (s *Store) TypeCounts(_ context.Context, field string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64)
	for _, o := range s.observations {
		out[typeTag(o.Field(field))]++
	}
	return out, nil
}

// TimestampSpan returns the lexical min and max dh_utc and the number of distinct values.
func (s *Store) TimestampSpan(context.Context) (domain.TimestampSpan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, o := range s.observations {
		if o.Timestamp != "" {
			seen[o.Timestamp] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return domain.TimestampSpan{}, nil
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return domain.TimestampSpan{Min: keys[0], Max: keys[len(keys)-1], Distinct: int64(len(keys))}, nil
}

// StationIDs returns every station identifier in ascending order.
func (s *Store) StationIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.stations))
	for id := range s.stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ObservationsBetween returns the observations of stationID with from <= dh_utc <= to,
// ordered by timestamp.
func (s *Store) ObservationsBetween(_ context.Context, stationID, from, to string) ([]domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Observation
	for _, o := range s.observations {
		if o.StationID == stationID && o.Timestamp >= from && o.Timestamp <= to {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func typeTag(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return domain.TypeString
	case int:
		return domain.TypeInt
	case float64:
		return domain.TypeDouble
	case bool:
		return domain.TypeBool
	default:
		return "object"
	}
}
