// Package mongo persists stations, observations and schema metadata in
// MongoDB and answers the aggregation queries of the quality engine.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/greencoop/weather-etl/internal/domain"
)

// Collection names.
const (
	CollectionStations       = "stations"
	CollectionObservations   = "observations"
	CollectionSchemaMetadata = "schema_metadata"
)

// ErrConnect marks a failure to reach the server.
var ErrConnect = errors.New("connect to mongodb")

// Options configures the connection.
type Options struct {
	URI                    string
	Database               string
	ServerSelectionTimeout time.Duration
	ConnectTimeout         time.Duration
}

// Store is a MongoDB-backed store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Connect opens a client and pings the primary. Failures wrap ErrConnect.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	logger.Info("connecting to mongodb", "uri", MaskURI(opts.URI), "database", opts.Database)

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerSelectionTimeout(opts.ServerSelectionTimeout).
		SetConnectTimeout(opts.ConnectTimeout).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	logger.Info("connected to mongodb", "database", opts.Database)
	return &Store{client: client, db: client.Database(opts.Database), logger: logger}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// CheckReadiness pings the primary.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// MaskURI strips credentials: everything up to the last '@' is dropped.
func MaskURI(uri string) string {
	if i := strings.LastIndex(uri, "@"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

func (s *Store) stations() *mongo.Collection     { return s.db.Collection(CollectionStations) }
func (s *Store) observations() *mongo.Collection { return s.db.Collection(CollectionObservations) }
func (s *Store) schemaMeta() *mongo.Collection   { return s.db.Collection(CollectionSchemaMetadata) }

var upsert = options.Replace().SetUpsert(true)

// UpsertStation replaces the station keyed by id_station, inserting it if absent.
func (s *Store) UpsertStation(ctx context.Context, st domain.Station) (bool, error) {
	res, err := s.stations().ReplaceOne(ctx, bson.D{{Key: domain.FieldStationID, Value: st.ID}}, st, upsert)
	if err != nil {
		return false, fmt.Errorf("upsert station %s: %w", st.ID, err)
	}
	return res.UpsertedCount > 0, nil
}

// UpsertObservation replaces the observation keyed by (id_station, dh_utc).
func (s *Store) UpsertObservation(ctx context.Context, obs domain.Observation) (bool, error) {
	filter := bson.D{
		{Key: domain.FieldStationID, Value: obs.StationID},
		{Key: domain.FieldTimestamp, Value: obs.Timestamp},
	}
	res, err := s.observations().ReplaceOne(ctx, filter, obs, upsert)
	if err != nil {
		return false, fmt.Errorf("upsert observation %s@%s: %w", obs.StationID, obs.Timestamp, err)
	}
	return res.UpsertedCount > 0, nil
}

// UpsertSchemaField replaces the metadata document keyed by field_name.
func (s *Store) UpsertSchemaField(ctx context.Context, f domain.SchemaField) (bool, error) {
	res, err := s.schemaMeta().ReplaceOne(ctx, bson.D{{Key: "field_name", Value: f.FieldName}}, f, upsert)
	if err != nil {
		return false, fmt.Errorf("upsert schema field %s: %w", f.FieldName, err)
	}
	return res.UpsertedCount > 0, nil
}
