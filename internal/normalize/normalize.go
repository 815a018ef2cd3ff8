// Package normalize converts raw source values into canonical units.
//
// Every function is total: unparseable or missing input yields nil, never
// an error. Callers decide whether a nil is worth logging.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const timestampLayout = "2006-01-02T15:04:05Z"

var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"none": true,
}

var compassDegrees = map[string]float64{
	"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
	"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
	"S": 180, "SSW": 202.5, "SW": 225, "WSW": 247.5,
	"W": 270, "WNW": 292.5, "NW": 315, "NNW": 337.5,
}

// FahrenheitToCelsius converts "<float> °F" to °C rounded to one decimal.
func FahrenheitToCelsius(v any) *float64 {
	f := withUnit(v, "°F", "°", "F")
	if f == nil {
		return nil
	}
	return round1((*f - 32) * 5 / 9)
}

// MPHToKMH converts "<float> mph" to km/h rounded to one decimal.
func MPHToKMH(v any) *float64 {
	f := withUnit(v, "mph")
	if f == nil {
		return nil
	}
	return round1(*f * 1.60934)
}

// InchesToHPa converts a barometric reading "<float> in" (inHg) to hPa
// rounded to one decimal.
func InchesToHPa(v any) *float64 {
	f := withUnit(v, "in")
	if f == nil {
		return nil
	}
	return round1(*f * 33.8639)
}

// InchesToMM converts a precipitation depth "<float> in" to mm rounded to
// one decimal.
func InchesToMM(v any) *float64 {
	f := withUnit(v, "in")
	if f == nil {
		return nil
	}
	return round1(*f * 25.4)
}

// Percentage strips a trailing "%" and parses the remainder.
func Percentage(v any) *float64 {
	return withUnit(v, "%")
}

// WindDirectionDegrees maps a 16-point compass abbreviation to degrees.
// Unknown labels yield nil.
func WindDirectionDegrees(v any) *float64 {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	deg, ok := compassDegrees[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return nil
	}
	return &deg
}

// Float passes a numeric value through. Strings are parsed; "", "nan",
// "null" and NaN become nil.
func Float(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		return parseFloat(x.String())
	case string:
		return parseFloat(x)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Int is Float truncated toward zero. Values outside the int range are nil.
func Int(v any) *int {
	f := Float(v)
	if f == nil {
		return nil
	}
	t := math.Trunc(*f)
	// float64(math.MaxInt) rounds up to 2^63, which no int can hold.
	if t < float64(math.MinInt) || t >= float64(math.MaxInt) {
		return nil
	}
	i := int(t)
	return &i
}

// String returns trimmed text for strings and the shortest decimal form for
// numbers. Blank strings become nil.
func String(v any) *string {
	var s string
	switch x := v.(type) {
	case string:
		s = strings.TrimSpace(x)
		if s == "" {
			return nil
		}
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case json.Number:
		s = x.String()
	default:
		return nil
	}
	return &s
}

// Timestamp parses any recognizable date/time and renders it as
// "YYYY-MM-DDTHH:MM:SSZ" in UTC. Values without a zone are read as UTC.
func Timestamp(v any) *string {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		s := strings.TrimSpace(x)
		if nullTokens[strings.ToLower(s)] {
			return nil
		}
		parsed, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	out := t.UTC().Format(timestampLayout)
	return &out
}

func withUnit(v any, units ...string) *float64 {
	s, ok := v.(string)
	if !ok {
		return Float(v)
	}
	s = strings.TrimSpace(s)
	for _, u := range units {
		s = strings.TrimSpace(strings.TrimSuffix(s, u))
	}
	return parseFloat(s)
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if nullTokens[strings.ToLower(s)] {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func round1(x float64) *float64 {
	r := math.Round(x*10) / 10
	return &r
}
