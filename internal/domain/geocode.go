package domain

import (
	"context"
	"log/slog"
)

// EnrichStation fills in missing location fields of a station. Stations with
// coordinates but no region are reverse geocoded; stations with a city but no
// coordinates are forward geocoded. Failures leave the station unchanged.
func EnrichStation(ctx context.Context, st Station, geocoder Geocoder, logger *slog.Logger) Station {
	if geocoder == nil {
		return st
	}

	if st.HasCoordinates() {
		if st.State != nil {
			return st
		}
		result, err := geocoder.ReverseGeocode(ctx, *st.Latitude, *st.Longitude)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"station", st.ID,
				"lat", *st.Latitude,
				"lon", *st.Longitude,
				"error", err,
			)
			return st
		}
		if result.Region != "" {
			st.State = &result.Region
		}
		if st.City == nil && result.PlaceName != "" {
			st.City = &result.PlaceName
		}
		return st
	}

	if st.City == nil || *st.City == "" {
		return st
	}
	result, err := geocoder.ForwardGeocode(ctx, *st.City)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"station", st.ID,
			"city", *st.City,
			"error", err,
		)
		return st
	}
	if result.Lat != 0 || result.Lon != 0 {
		lat, lon := result.Lat, result.Lon
		st.Latitude = &lat
		st.Longitude = &lon
	}
	if st.State == nil && result.Region != "" {
		st.State = &result.Region
	}
	return st
}
