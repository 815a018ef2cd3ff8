package quality

import "github.com/greencoop/weather-etl/internal/domain"

// Coverage statuses of the date coverage check.
const (
	StatusPass  = "PASS"
	StatusWarn  = "WARN"
	StatusError = "ERROR"
)

// Check names, in execution order. They key alerts, metrics and check errors.
const (
	CheckMissingFields   = "missing_required_fields"
	CheckDuplicates      = "duplicates"
	CheckDataRanges      = "data_ranges"
	CheckNullPercentages = "null_percentages"
	CheckUniqueValues    = "unique_values"
	CheckTypeConsistency = "type_consistency"
	CheckDateCoverage    = "date_coverage"
)

// Report is the result of one quality run.
type Report struct {
	Timestamp   string      `json:"timestamp"`
	Collections Collections `json:"collections"`
	Checks      Checks      `json:"checks"`
	Alerts      []Alert     `json:"alerts"`
}

// Collections holds document counts per collection.
type Collections struct {
	ObservationsTotal   int64 `json:"observations_total"`
	StationsTotal       int64 `json:"stations_total"`
	SchemaMetadataTotal int64 `json:"schema_metadata_total"`
}

// Checks holds one result per check. A nil entry means the check did not run
// or failed; failures are listed in Errors.
type Checks struct {
	MissingRequiredFields map[string]CountPercent `json:"missing_required_fields,omitempty"`
	Duplicates            *CountPercent           `json:"duplicates,omitempty"`
	DataRanges            map[string]Range        `json:"data_ranges,omitempty"`
	NullPercentages       map[string]CountPercent `json:"null_percentages,omitempty"`
	UniqueValues          *UniqueValues           `json:"unique_values,omitempty"`
	TypeConsistency       *TypeConsistency        `json:"type_consistency,omitempty"`
	DateCoverage          *DateCoverage           `json:"date_coverage,omitempty"`
	Errors                map[string]string       `json:"errors,omitempty"`
}

// CountPercent is a count with its share of all observations, 2 decimals.
type CountPercent struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Range summarizes the numeric values of one field, rounded to 2 decimals.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int64   `json:"count"`
}

// UniqueValues is the cardinality check result.
type UniqueValues struct {
	UniqueStations int64 `json:"unique_stations"`
	UniqueSources  int64 `json:"unique_sources"`
	UniqueCities   int64 `json:"unique_cities"`
	SchemaFields   int64 `json:"schema_fields"`
}

// TypeConsistency lists the runtime type tags found per field.
type TypeConsistency struct {
	TemperatureTypes map[string]int64 `json:"temperature_types"`
	StationTypes     map[string]int64 `json:"station_types"`
}

// DateCoverage is the date continuity check result.
type DateCoverage struct {
	Status  string              `json:"status"`
	Reason  string              `json:"reason"`
	Details DateCoverageDetails `json:"details"`
}

// DateCoverageDetails carries the measured span.
type DateCoverageDetails struct {
	MinDate            string  `json:"min_date,omitempty"`
	MaxDate            string  `json:"max_date,omitempty"`
	TotalDays          int64   `json:"total_days,omitempty"`
	UniqueDates        int64   `json:"unique_dates,omitempty"`
	CoveragePercentage float64 `json:"coverage_percentage"`
}

// Alert is a threshold breach raised by a check.
type Alert struct {
	Check   string `json:"check"`
	Message string `json:"message"`
}

// rangeFields are the measurements summarized by the data range check.
var rangeFields = []string{domain.FieldTemperature, domain.FieldPressure, domain.FieldHumidity}

// nullRateFields are the measurements whose null rate is checked.
var nullRateFields = []string{
	domain.FieldTemperature,
	domain.FieldPressure,
	domain.FieldHumidity,
	domain.FieldWindMean,
	domain.FieldWindGust,
	domain.FieldRain1h,
	domain.FieldVisibility,
	domain.FieldCloudCover,
}

var requiredFields = []string{domain.FieldStationID, domain.FieldTimestamp}
