package source

import "github.com/greencoop/weather-etl/internal/domain"

// FilterEmptyRows drops, per station, observations without any core
// measurement and returns how many were dropped.
func FilterEmptyRows(hourly map[string][]domain.Observation) int {
	dropped := 0
	for id, rows := range hourly {
		kept := rows[:0]
		for _, o := range rows {
			if o.HasCoreMeasurement() {
				kept = append(kept, o)
			}
		}
		dropped += len(rows) - len(kept)
		hourly[id] = kept
	}
	return dropped
}
