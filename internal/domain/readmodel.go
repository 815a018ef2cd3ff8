package domain

// FieldStats summarizes the numeric values of one observation field.
type FieldStats struct {
	Min   float64
	Max   float64
	Avg   float64
	Count int64
}

// TimestampSpan describes the observation timestamps held in the store.
type TimestampSpan struct {
	Min      string
	Max      string
	Distinct int64
}
