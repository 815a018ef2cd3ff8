package mongo

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/greencoop/weather-etl/internal/domain"
)

// observationsValidator is the $jsonSchema applied to the observations collection.
func observationsValidator() bson.M {
	nullable := func(types ...string) bson.M {
		return bson.M{"bsonType": append(bson.A{}, toAny(types)...)}
	}
	props := bson.M{
		"_id":                   bson.M{"bsonType": "objectId"},
		domain.FieldStationID:   bson.M{"bsonType": "string"},
		domain.FieldTimestamp:   bson.M{"bsonType": "string"},
		domain.FieldCloudCover:  nullable("string", "null"),
		domain.FieldWeatherCode: nullable("int", "long", "null"),
		domain.FieldSource:      bson.M{"bsonType": "string"},
		domain.FieldIngestedAt:  bson.M{"bsonType": "string"},
	}
	for _, f := range []string{
		domain.FieldTemperature, domain.FieldPressure, domain.FieldHumidity,
		domain.FieldDewPoint, domain.FieldVisibility, domain.FieldWindMean,
		domain.FieldWindGust, domain.FieldWindDirection, domain.FieldRain3h,
		domain.FieldRain1h, domain.FieldSnowDepth,
	} {
		props[f] = nullable("double", "null")
	}
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   bson.A{domain.FieldStationID, domain.FieldTimestamp},
		"properties": props,
	}}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// indexModels lists the secondary indexes per collection.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CollectionStations: {
			{Keys: bson.D{{Key: domain.FieldStationID, Value: 1}}, Options: options.Index().SetUnique(true).SetName("idx_station_unique")},
			{Keys: bson.D{{Key: "city", Value: 1}}, Options: options.Index().SetName("idx_city")},
		},
		CollectionObservations: {
			{Keys: bson.D{{Key: domain.FieldStationID, Value: 1}}, Options: options.Index().SetName("idx_obs_station")},
			{Keys: bson.D{{Key: domain.FieldTimestamp, Value: -1}}, Options: options.Index().SetName("idx_obs_timestamp")},
			{Keys: bson.D{{Key: domain.FieldStationID, Value: 1}, {Key: domain.FieldTimestamp, Value: -1}}, Options: options.Index().SetName("idx_obs_station_time")},
		},
		CollectionSchemaMetadata: {
			{Keys: bson.D{{Key: "field_name", Value: 1}}, Options: options.Index().SetUnique(true).SetName("idx_field_unique")},
		},
	}
}

var collectionOrder = []string{CollectionStations, CollectionObservations, CollectionSchemaMetadata}

// EnsureSchema creates missing collections and their indexes. With drop set,
// existing collections are dropped first.
func (s *Store) EnsureSchema(ctx context.Context, drop bool) error {
	existing, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if drop {
		for _, name := range collectionOrder {
			if !slices.Contains(existing, name) {
				continue
			}
			if err := s.db.Collection(name).Drop(ctx); err != nil {
				return fmt.Errorf("drop collection %s: %w", name, err)
			}
			s.logger.Info("dropped collection", "collection", name)
		}
		existing = nil
	}

	for _, name := range collectionOrder {
		if slices.Contains(existing, name) {
			continue
		}
		opts := options.CreateCollection()
		if name == CollectionObservations {
			opts.SetValidator(observationsValidator())
		}
		if err := s.db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		s.logger.Info("created collection", "collection", name)
	}

	models := indexModels()
	for _, name := range collectionOrder {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models[name]); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
		s.logger.Info("ensured indexes", "collection", name, "count", len(models[name]))
	}
	return nil
}
