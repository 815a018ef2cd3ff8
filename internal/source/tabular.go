package source

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/normalize"
)

// Spreadsheet column headers.
const (
	colTime        = "Time"
	colTemperature = "Temperature"
	colPressure    = "Pressure"
	colHumidity    = "Humidity"
	colDewPoint    = "Dew Point"
	colSpeed       = "Speed"
	colGust        = "Gust"
	colWind        = "Wind"
	colPrecip      = "Precip. Accum."
)

var clockLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04:05 PM", "3:04PM", "03:04 PM"}

// Tabular reads a workbook exported by a personal weather station: one
// sheet per day, imperial units, a single station described in the config.
type Tabular struct {
	src     config.Source
	fetcher Fetcher
	logger  *slog.Logger
}

// Name returns the configured source name.
func (t *Tabular) Name() string { return t.src.SourceName }

// Read parses every sheet of the workbook.
func (t *Tabular) Read(ctx context.Context) (Result, error) {
	path, err := resolveInput(ctx, t.src, t.fetcher)
	if err != nil {
		return Result{}, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	station := t.station()
	var rows []domain.Observation

	sheets := f.GetSheetList()
	t.logger.Info("reading workbook", "path", path, "sheets", len(sheets))
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		grid, err := f.GetRows(sheet)
		if err != nil {
			return Result{}, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		parsed := t.readSheet(sheet, grid)
		t.logger.Debug("read sheet", "sheet", sheet, "rows", len(parsed))
		rows = append(rows, parsed...)
	}

	return Result{
		Stations: []domain.Station{station},
		Hourly:   map[string][]domain.Observation{station.ID: rows},
	}, nil
}

func (t *Tabular) readSheet(sheet string, grid [][]string) []domain.Observation {
	if len(grid) == 0 {
		return nil
	}
	header := make(map[string]int, len(grid[0]))
	for i, name := range grid[0] {
		header[strings.TrimSpace(name)] = i
	}
	cell := func(row []string, col string) any {
		i, ok := header[col]
		if !ok || i >= len(row) {
			return nil
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			return nil
		}
		return v
	}

	date := ParseSheetDate(sheet)
	out := make([]domain.Observation, 0, len(grid)-1)
	for _, row := range grid[1:] {
		if isBlank(row) && t.src.DropBlankRows() {
			continue
		}
		clock, _ := cell(row, colTime).(string)
		out = append(out, domain.Observation{
			StationID:     t.src.StationID,
			Timestamp:     date + "T" + NormalizeClock(clock) + "Z",
			Temperature:   normalize.FahrenheitToCelsius(cell(row, colTemperature)),
			Pressure:      normalize.InchesToHPa(cell(row, colPressure)),
			Humidity:      normalize.Percentage(cell(row, colHumidity)),
			DewPoint:      normalize.FahrenheitToCelsius(cell(row, colDewPoint)),
			WindMean:      normalize.MPHToKMH(cell(row, colSpeed)),
			WindGust:      normalize.MPHToKMH(cell(row, colGust)),
			WindDirection: normalize.WindDirectionDegrees(cell(row, colWind)),
			Rain1h:        normalize.InchesToMM(cell(row, colPrecip)),
		})
	}
	return out
}

func (t *Tabular) station() domain.Station {
	return domain.Station{
		ID:        t.src.StationID,
		Name:      t.src.StationName,
		Latitude:  t.src.Latitude,
		Longitude: t.src.Longitude,
		Elevation: t.src.Elevation,
		City:      t.src.City,
		State:     t.src.State,
		Hardware:  t.src.Hardware,
		Software:  t.src.Software,
	}
}

// ParseSheetDate turns a DDMMYY sheet name into YYYY-MM-DD. Names that do
// not parse are returned unchanged.
func ParseSheetDate(name string) string {
	d, err := time.Parse("020106", strings.TrimSpace(name))
	if err != nil {
		return name
	}
	return d.Format(time.DateOnly)
}

// NormalizeClock renders a spreadsheet time cell as HH:MM:SS. Blank cells
// become midnight; values in no known layout are passed through.
func NormalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "00:00:00"
	}
	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return c.Format(time.TimeOnly)
		}
	}
	// Unformatted time cells hold the fraction of a day.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		secs := int(math.Round(f * 86400))
		return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(secs) * time.Second).Format(time.TimeOnly)
	}
	return s
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
