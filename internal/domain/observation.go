package domain

import (
	"errors"
	"strings"

	"github.com/greencoop/weather-etl/internal/normalize"
)

// Persisted field names of the canonical observation schema.
const (
	FieldStationID     = "id_station"
	FieldTimestamp     = "dh_utc"
	FieldTemperature   = "temperature"
	FieldPressure      = "pression"
	FieldHumidity      = "humidite"
	FieldDewPoint      = "point_de_rosee"
	FieldVisibility    = "visibilite"
	FieldWindMean      = "vent_moyen"
	FieldWindGust      = "vent_rafales"
	FieldWindDirection = "vent_direction"
	FieldRain3h        = "pluie_3h"
	FieldRain1h        = "pluie_1h"
	FieldSnowDepth     = "neige_au_sol"
	FieldCloudCover    = "nebulosite"
	FieldWeatherCode   = "temps_omm"
	FieldSource        = "_source"
	FieldIngestedAt    = "_ingestion_timestamp"
)

// TimestampLayout is the strict UTC form of every persisted observation timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

// CoreMeasurementFields is the subset of measurements of which at least one
// must be populated for an observation to be kept or stored.
var CoreMeasurementFields = []string{
	FieldTemperature,
	FieldPressure,
	FieldHumidity,
	FieldWindMean,
	FieldWindGust,
	FieldRain1h,
	FieldVisibility,
}

// Validation failures. They classify a record as skipped, never as an error.
var (
	ErrMissingStationID = errors.New("missing id_station")
	ErrMissingTimestamp = errors.New("missing dh_utc")
	ErrInvalidTimestamp = errors.New("invalid ISO 8601 timestamp")
	ErrNoMeasurement    = errors.New("no measurement values present")
)

// Observation is one hourly reading of one station in canonical units:
// °C, hPa, %, km/h, degrees and mm.
type Observation struct {
	StationID     string   `json:"id_station" bson:"id_station"`
	Timestamp     string   `json:"dh_utc" bson:"dh_utc"`
	Temperature   *float64 `json:"temperature" bson:"temperature"`
	Pressure      *float64 `json:"pression" bson:"pression"`
	Humidity      *float64 `json:"humidite" bson:"humidite"`
	DewPoint      *float64 `json:"point_de_rosee" bson:"point_de_rosee"`
	Visibility    *float64 `json:"visibilite" bson:"visibilite"`
	WindMean      *float64 `json:"vent_moyen" bson:"vent_moyen"`
	WindGust      *float64 `json:"vent_rafales" bson:"vent_rafales"`
	WindDirection *float64 `json:"vent_direction" bson:"vent_direction"`
	Rain3h        *float64 `json:"pluie_3h" bson:"pluie_3h"`
	Rain1h        *float64 `json:"pluie_1h" bson:"pluie_1h"`
	SnowDepth     *float64 `json:"neige_au_sol" bson:"neige_au_sol"`
	CloudCover    *string  `json:"nebulosite" bson:"nebulosite"`
	WeatherCode   *int     `json:"temps_omm" bson:"temps_omm"`

	Source     string `json:"_source,omitempty" bson:"_source,omitempty"`
	IngestedAt string `json:"_ingestion_timestamp,omitempty" bson:"_ingestion_timestamp,omitempty"`
}

// ObservationKey is the natural key of an observation.
type ObservationKey struct {
	StationID string
	Timestamp string
}

// Key returns the (station, timestamp) natural key.
func (o Observation) Key() ObservationKey {
	return ObservationKey{StationID: o.StationID, Timestamp: o.Timestamp}
}

// HasCoreMeasurement reports whether any of CoreMeasurementFields is populated.
func (o Observation) HasCoreMeasurement() bool {
	for _, f := range CoreMeasurementFields {
		if o.Field(f) != nil {
			return true
		}
	}
	return false
}

// Validate applies the pre-write checks. The timestamp check is a shape check
// only: the value must contain both 'T' and 'Z'.
func (o Observation) Validate() error {
	if o.StationID == "" {
		return ErrMissingStationID
	}
	if o.Timestamp == "" {
		return ErrMissingTimestamp
	}
	if !strings.Contains(o.Timestamp, "T") || !strings.Contains(o.Timestamp, "Z") {
		return ErrInvalidTimestamp
	}
	if !o.HasCoreMeasurement() {
		return ErrNoMeasurement
	}
	return nil
}

// Field returns the dereferenced value of a persisted field, or nil when the
// field is null or unknown. Numeric measurements come back as float64, the
// weather code as int and string fields as string.
func (o Observation) Field(name string) any {
	switch name {
	case FieldStationID:
		return stringOrNil(o.StationID)
	case FieldTimestamp:
		return stringOrNil(o.Timestamp)
	case FieldSource:
		return stringOrNil(o.Source)
	case FieldIngestedAt:
		return stringOrNil(o.IngestedAt)
	case FieldCloudCover:
		if o.CloudCover == nil {
			return nil
		}
		return *o.CloudCover
	case FieldWeatherCode:
		if o.WeatherCode == nil {
			return nil
		}
		return *o.WeatherCode
	}
	p := o.measurement(name)
	if p == nil {
		return nil
	}
	return *p
}

func (o Observation) measurement(name string) *float64 {
	switch name {
	case FieldTemperature:
		return o.Temperature
	case FieldPressure:
		return o.Pressure
	case FieldHumidity:
		return o.Humidity
	case FieldDewPoint:
		return o.DewPoint
	case FieldVisibility:
		return o.Visibility
	case FieldWindMean:
		return o.WindMean
	case FieldWindGust:
		return o.WindGust
	case FieldWindDirection:
		return o.WindDirection
	case FieldRain3h:
		return o.Rain3h
	case FieldRain1h:
		return o.Rain1h
	case FieldSnowDepth:
		return o.SnowDepth
	default:
		return nil
	}
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ObservationFromMap builds an Observation from a decoded JSON object.
// The timestamp is carried verbatim; callers reconcile or validate it.
// A non-string id_station is treated as missing.
func ObservationFromMap(m map[string]any) Observation {
	o := Observation{
		Temperature:   normalize.Float(m[FieldTemperature]),
		Pressure:      normalize.Float(m[FieldPressure]),
		Humidity:      normalize.Float(m[FieldHumidity]),
		DewPoint:      normalize.Float(m[FieldDewPoint]),
		Visibility:    normalize.Float(m[FieldVisibility]),
		WindMean:      normalize.Float(m[FieldWindMean]),
		WindGust:      normalize.Float(m[FieldWindGust]),
		WindDirection: normalize.Float(m[FieldWindDirection]),
		Rain3h:        normalize.Float(m[FieldRain3h]),
		Rain1h:        normalize.Float(m[FieldRain1h]),
		SnowDepth:     normalize.Float(m[FieldSnowDepth]),
		CloudCover:    normalize.String(m[FieldCloudCover]),
		WeatherCode:   normalize.Int(m[FieldWeatherCode]),
	}
	if id, ok := m[FieldStationID].(string); ok {
		o.StationID = id
	}
	if ts, ok := m[FieldTimestamp].(string); ok {
		o.Timestamp = ts
	}
	if src, ok := m[FieldSource].(string); ok {
		o.Source = src
	}
	return o
}
