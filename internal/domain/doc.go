// Package domain models weather stations, hourly observations and the
// schema metadata that documents them.
//
// # Canonical units
//
// Every observation is stored in metric units regardless of where it came from:
//
//	temperature, point_de_rosee   °C, one decimal
//	pression                      hPa, one decimal
//	humidite                      percent
//	vent_moyen, vent_rafales      km/h, one decimal
//	vent_direction                degrees clockwise from north, [0, 360)
//	pluie_1h, pluie_3h            mm, one decimal
//
// Field names are kept in the form used by existing JSONL batches and
// collections (id_station, dh_utc, pression, ...) so both stay readable by
// older tooling.
//
// # Identity
//
// A station is identified by its id_station. An observation is identified by
// the pair (id_station, dh_utc), where dh_utc is always formatted as
// "YYYY-MM-DDTHH:MM:SSZ". Both keys drive idempotent replace-by-key upserts:
// loading the same batch twice leaves the store unchanged apart from the
// _ingestion_timestamp provenance field.
//
// # Nullability
//
// Every measurement is optional and modeled as a pointer. An observation
// without any of [CoreMeasurementFields] carries no information and is
// rejected by [Observation.Validate].
package domain
