package pipeline

import (
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/source"
)

// Merge combines adapter results in source order. The first sighting of a
// station wins; hourly lists of the same station are concatenated.
func Merge(results []source.Result) source.Result {
	out := source.Result{Hourly: make(map[string][]domain.Observation)}
	seen := make(map[string]struct{})
	for _, r := range results {
		for _, st := range r.Stations {
			if _, dup := seen[st.ID]; dup {
				continue
			}
			seen[st.ID] = struct{}{}
			out.Stations = append(out.Stations, st)
		}
		for id, rows := range r.Hourly {
			out.Hourly[id] = append(out.Hourly[id], rows...)
		}
	}
	return out
}
