package domain

import (
	"errors"

	"github.com/greencoop/weather-etl/internal/normalize"
)

// ErrMissingStationIdentifier marks a station record without an identifier.
var ErrMissingStationIdentifier = errors.New("missing station identifier")

// Station is a weather station. Every field but ID is nullable; later
// sightings replace the whole document.
type Station struct {
	ID        string   `json:"id" bson:"id_station"`
	Name      *string  `json:"name" bson:"name"`
	Latitude  *float64 `json:"latitude" bson:"latitude"`
	Longitude *float64 `json:"longitude" bson:"longitude"`
	Elevation *int     `json:"elevation" bson:"elevation"`
	City      *string  `json:"city" bson:"city"`
	State     *string  `json:"state" bson:"state"`
	Hardware  *string  `json:"hardware" bson:"hardware"`
	Software  *string  `json:"software" bson:"software"`
}

// Validate reports ErrMissingStationIdentifier when the station has no ID.
func (s Station) Validate() error {
	if s.ID == "" {
		return ErrMissingStationIdentifier
	}
	return nil
}

// HasCoordinates reports whether both latitude and longitude are known.
func (s Station) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// StationFromMap builds a Station from a decoded JSON object. The identifier
// may be carried as "id" or "id_station"; "id" wins when both are present.
// Values are coerced with the normalize package, so wrong types become nil.
func StationFromMap(m map[string]any) Station {
	s := Station{
		Name:      normalize.String(m["name"]),
		Latitude:  normalize.Float(m["latitude"]),
		Longitude: normalize.Float(m["longitude"]),
		Elevation: normalize.Int(m["elevation"]),
		City:      normalize.String(m["city"]),
		State:     normalize.String(m["state"]),
		Hardware:  normalize.String(m["hardware"]),
		Software:  normalize.String(m["software"]),
	}
	for _, key := range []string{"id", FieldStationID} {
		if id := normalize.String(m[key]); id != nil {
			s.ID = *id
			break
		}
	}
	return s
}
