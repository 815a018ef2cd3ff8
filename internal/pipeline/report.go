package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RenderIngestionReport formats the loading summary as plain text.
func RenderIngestionReport(s LoadStats) string {
	rule := strings.Repeat("=", 70)
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "MONGODB INGESTION REPORT - LOADING PHASE")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "LOADING SUMMARY")
	fmt.Fprintln(&b, strings.Repeat("-", 70))
	fmt.Fprintf(&b, "Files processed: %d\n", s.Files)
	fmt.Fprintf(&b, "Stations - Inserted: %d, Updated: %d\n", s.StationsInserted, s.StationsUpdated)
	fmt.Fprintf(&b, "Observations - Inserted: %d, Updated: %d\n", s.ObservationsInserted, s.ObservationsUpdated)
	fmt.Fprintf(&b, "Schema fields loaded: %d\n", s.SchemaFieldsLoaded)
	fmt.Fprintf(&b, "Skipped: %d, Errors: %d\n", s.Skipped, s.Errors)
	fmt.Fprintln(&b)
	b.WriteString(rule)
	return b.String()
}

// WriteReport writes content to path, creating parent directories.
func WriteReport(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // reports are not secret
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
