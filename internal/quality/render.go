package quality

import (
	"encoding/json"
	"fmt"
	"strings"
)

const reportWidth = 80

// RenderText formats the report as the fixed-width text report.
func RenderText(r *Report) string {
	rule := strings.Repeat("=", reportWidth)
	thin := strings.Repeat("-", reportWidth)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(rule)
	line("MONGODB DATA QUALITY REPORT - POST-INGESTION ANALYSIS")
	line(rule)
	line("")
	line("Report generated: %s", r.Timestamp)
	line("")
	line("COLLECTION STATISTICS")
	line(thin)
	line("Total observations: %d", r.Collections.ObservationsTotal)
	line("Total stations: %d", r.Collections.StationsTotal)
	line("Schema fields defined: %d", r.Collections.SchemaMetadataTotal)
	line("")
	line("QUALITY CHECKS")
	line(thin)

	c := r.Checks
	if c.MissingRequiredFields != nil {
		line("✓ Check 1: Missing Required Fields")
		for _, f := range requiredFields {
			d := c.MissingRequiredFields[f]
			line("    %s: %d records (%s%%)", f, d.Count, formatNumber(d.Percentage))
		}
		line("")
	}
	if c.Duplicates != nil {
		line("✓ Check 2: Duplicates: %d records (%s%%)", c.Duplicates.Count, formatNumber(c.Duplicates.Percentage))
		line("")
	}
	if c.DataRanges != nil {
		line("✓ Check 3: Data Ranges")
		for _, f := range rangeFields {
			d, ok := c.DataRanges[f]
			if !ok {
				continue
			}
			line("    %s:", f)
			line("      Min: %s, Max: %s, Avg: %s", formatNumber(d.Min), formatNumber(d.Max), formatNumber(d.Avg))
			line("      Records with data: %d", d.Count)
		}
		line("")
	}
	if c.NullPercentages != nil {
		line("✓ Check 4: Null Percentages")
		for _, f := range nullRateFields {
			line("    %s: %s%%", f, formatNumber(c.NullPercentages[f].Percentage))
		}
		line("")
	}
	if u := c.UniqueValues; u != nil {
		line("✓ Check 5: Unique Values")
		line("    unique_stations: %d", u.UniqueStations)
		line("    unique_sources: %d", u.UniqueSources)
		line("    unique_cities: %d", u.UniqueCities)
		line("    schema_fields: %d", u.SchemaFields)
		line("")
	}
	if tc := c.TypeConsistency; tc != nil {
		line("✓ Check 6: Type Consistency")
		line("    temperature_types: %s", formatTypes(tc.TemperatureTypes))
		line("    station_types: %s", formatTypes(tc.StationTypes))
		line("")
	}
	if dc := c.DateCoverage; dc != nil {
		line("✓ Check 7: Date Coverage")
		line("    Status: %s", dc.Status)
		line("    %s", dc.Reason)
		line("    Min date: %s", orNA(dc.Details.MinDate))
		line("    Max date: %s", orNA(dc.Details.MaxDate))
		line("    Coverage: %s%%", formatNumber(dc.Details.CoveragePercentage))
		line("")
	}
	if len(c.Errors) > 0 {
		line("CHECK ERRORS")
		line(thin)
		for _, name := range sortedKeys(c.Errors) {
			line("✗ %s: %s", name, c.Errors[name])
		}
		line("")
	}

	if len(r.Alerts) > 0 {
		line("ALERTS")
		line(thin)
		for _, a := range r.Alerts {
			line("⚠️  %s", a.Message)
		}
		line("")
	} else {
		line("✅ No alerts - Data quality is excellent")
		line("")
	}
	b.WriteString(rule)
	return b.String()
}

// RenderJSON formats the report as indented JSON.
func RenderJSON(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode quality report: %w", err)
	}
	return data, nil
}

func formatTypes(m map[string]int64) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
