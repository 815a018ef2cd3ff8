package normalize

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertFloat(t *testing.T, want *float64, got *float64) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.InDelta(t, *want, *got, 1e-9)
}

func f(v float64) *float64 { return &v }

func TestFahrenheitToCelsius(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"freezing", "32 °F", f(0)},
		{"boiling", "212 °F", f(100)},
		{"rounded", "55.4 °F", f(13)},
		{"no space", "50°F", f(10)},
		{"non-breaking space", "68 °F", f(20)},
		{"bare number", 41.0, f(5)},
		{"negative", "-40 °F", f(-40)},
		{"nil", nil, nil},
		{"garbage", "warm", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloat(t, tt.want, FahrenheitToCelsius(tt.in))
		})
	}
}

func TestFahrenheitToCelsius_MatchesFormula(t *testing.T) {
	for _, in := range []float64{-12.7, 0, 33.3, 59.9, 71.2, 99.5} {
		got := FahrenheitToCelsius(in)
		require.NotNil(t, got)
		assert.Equal(t, math.Round((in-32)*5/9*10)/10, *got)
	}
}

func TestMPHToKMH(t *testing.T) {
	assertFloat(t, f(16.1), MPHToKMH("10 mph"))
	assertFloat(t, f(0), MPHToKMH("0 mph"))
	assertFloat(t, nil, MPHToKMH("calm"))
	assertFloat(t, nil, MPHToKMH(nil))
}

func TestInchesToHPa(t *testing.T) {
	assertFloat(t, f(1013.2), InchesToHPa("29.92 in"))
	assertFloat(t, nil, InchesToHPa("n/a"))
}

func TestInchesToMM(t *testing.T) {
	assertFloat(t, f(25.4), InchesToMM("1 in"))
	assertFloat(t, f(0.5), InchesToMM("0.02 in"))
	assertFloat(t, nil, InchesToMM(""))
}

func TestPercentage(t *testing.T) {
	assertFloat(t, f(87), Percentage("87 %"))
	assertFloat(t, f(87), Percentage("87%"))
	assertFloat(t, f(55.5), Percentage(55.5))
	assertFloat(t, nil, Percentage("humid"))
}

func TestWindDirectionDegrees(t *testing.T) {
	labels := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	for i, label := range labels {
		t.Run(label, func(t *testing.T) {
			got := WindDirectionDegrees(label)
			require.NotNil(t, got)
			assert.Equal(t, float64(i)*22.5, *got)
			assert.GreaterOrEqual(t, *got, 0.0)
			assert.LessOrEqual(t, *got, 337.5)
		})
	}

	assertFloat(t, f(22.5), WindDirectionDegrees(" nne "))
	assert.Nil(t, WindDirectionDegrees("Calm"))
	assert.Nil(t, WindDirectionDegrees("VAR"))
	assert.Nil(t, WindDirectionDegrees(180.0))
	assert.Nil(t, WindDirectionDegrees(nil))
}

func TestFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"float", 12.5, f(12.5)},
		{"int", 7, f(7)},
		{"string", " 3.25 ", f(3.25)},
		{"json number", json.Number("1015.2"), f(1015.2)},
		{"empty", "", nil},
		{"nan string", "nan", nil},
		{"NaN string", "NaN", nil},
		{"null string", "null", nil},
		{"nan float", math.NaN(), nil},
		{"nil", nil, nil},
		{"bool", true, nil},
		{"garbage", "abc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFloat(t, tt.want, Float(tt.in))
		})
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		in   any
		want *int
	}{
		{61.7, intPtr(61)},
		{-2.9, intPtr(-2)},
		{"3", intPtr(3)},
		{"nan", nil},
		{nil, nil},
		{1e300, nil},
		{-1e300, nil},
		{"9.3e18", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Int(tt.in), "input %v", tt.in)
	}
}

func intPtr(i int) *int { return &i }

func TestString(t *testing.T) {
	assert.Equal(t, "Lille", *String(" Lille "))
	assert.Equal(t, "47", *String(47.0))
	assert.Equal(t, "3.5", *String(3.5))
	assert.Nil(t, String("   "))
	assert.Nil(t, String(nil))
	assert.Nil(t, String(true))
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"already canonical", "2024-10-05T10:00:00Z", "2024-10-05T10:00:00Z"},
		{"space separated", "2024-10-05 10:00:00", "2024-10-05T10:00:00Z"},
		{"offset converted to UTC", "2024-10-05T12:00:00+02:00", "2024-10-05T10:00:00Z"},
		{"date only", "2024-10-05", "2024-10-05T00:00:00Z"},
		{"time value", time.Date(2024, 10, 5, 10, 0, 0, 0, time.UTC), "2024-10-05T10:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Timestamp(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, Timestamp("bad-format"))
	assert.Nil(t, Timestamp(""))
	assert.Nil(t, Timestamp(nil))
	assert.Nil(t, Timestamp(12))
}
