package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationValidate(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
		want error
	}{
		{"valid", Observation{StationID: "X1", Timestamp: "2024-10-01T00:00:00Z", Temperature: ptr(15.0)}, nil},
		{"missing station", Observation{Timestamp: "2024-10-01T00:00:00Z", Temperature: ptr(15.0)}, ErrMissingStationID},
		{"missing timestamp", Observation{StationID: "X1", Temperature: ptr(15.0)}, ErrMissingTimestamp},
		{"bad timestamp", Observation{StationID: "X1", Timestamp: "bad-format", Temperature: ptr(15.0)}, ErrInvalidTimestamp},
		{"no Z", Observation{StationID: "X1", Timestamp: "2024-10-01T00:00:00", Temperature: ptr(15.0)}, ErrInvalidTimestamp},
		{"no measurements", Observation{StationID: "X1", Timestamp: "2024-10-01T00:00:00Z"}, ErrNoMeasurement},
		{"only non-core measurement", Observation{StationID: "X1", Timestamp: "2024-10-01T00:00:00Z", DewPoint: ptr(3.0)}, ErrNoMeasurement},
		{"visibility only", Observation{StationID: "X1", Timestamp: "2024-10-01T00:00:00Z", Visibility: ptr(10000.0)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.obs.Validate(), tt.want)
			if tt.want == nil {
				assert.NoError(t, tt.obs.Validate())
			}
		})
	}
}

func TestObservationFromMap(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"id_station": "07015",
		"dh_utc": "2024-10-05T10:00:00Z",
		"temperature": "12.3",
		"pression": 1015.2,
		"humidite": null,
		"vent_moyen": "nan",
		"nebulosite": "8/8",
		"temps_omm": 61.7,
		"_source": "infoclimat"
	}`), &m))

	obs := ObservationFromMap(m)

	assert.Equal(t, "07015", obs.StationID)
	assert.Equal(t, "2024-10-05T10:00:00Z", obs.Timestamp)
	assert.Equal(t, 12.3, *obs.Temperature)
	assert.Equal(t, 1015.2, *obs.Pressure)
	assert.Nil(t, obs.Humidity)
	assert.Nil(t, obs.WindMean)
	assert.Equal(t, "8/8", *obs.CloudCover)
	assert.Equal(t, 61, *obs.WeatherCode)
	assert.Equal(t, "infoclimat", obs.Source)
}

func TestObservationFromMap_NonStringStationIsMissing(t *testing.T) {
	obs := ObservationFromMap(map[string]any{"id_station": 42.0, "dh_utc": "2024-10-05T10:00:00Z", "temperature": 1.0})
	assert.ErrorIs(t, obs.Validate(), ErrMissingStationID)
}

func TestObservationField(t *testing.T) {
	obs := Observation{StationID: "X1", Temperature: ptr(15.0), WeatherCode: ptr(3)}

	assert.Equal(t, "X1", obs.Field(FieldStationID))
	assert.Equal(t, 15.0, obs.Field(FieldTemperature))
	assert.Equal(t, 3, obs.Field(FieldWeatherCode))
	assert.Nil(t, obs.Field(FieldPressure))
	assert.Nil(t, obs.Field(FieldTimestamp))
	assert.Nil(t, obs.Field("unknown"))
}

func TestObservationJSON_NullsAreExplicit(t *testing.T) {
	data, err := json.Marshal(Observation{StationID: "X1", Timestamp: "2024-10-01T00:00:00Z", Temperature: ptr(15.0)})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, FieldPressure)
	assert.Nil(t, m[FieldPressure])
	assert.NotContains(t, m, FieldSource)
}

func TestStationFromMap(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"id", map[string]any{"id": "07015"}, "07015"},
		{"id_station", map[string]any{"id_station": "ILAMAD25"}, "ILAMAD25"},
		{"id wins", map[string]any{"id": "a", "id_station": "b"}, "a"},
		{"missing", map[string]any{"name": "Lille"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StationFromMap(tt.in).ID)
		})
	}
}

func TestStationFromMap_Fields(t *testing.T) {
	st := StationFromMap(map[string]any{
		"id":        "07015",
		"name":      "Lille-Lesquin",
		"latitude":  50.57,
		"longitude": "3.0975",
		"elevation": 47.0,
		"city":      "Lille",
	})

	assert.Equal(t, "Lille-Lesquin", *st.Name)
	assert.Equal(t, 50.57, *st.Latitude)
	assert.Equal(t, 3.0975, *st.Longitude)
	assert.Equal(t, 47, *st.Elevation)
	assert.Equal(t, "Lille", *st.City)
	assert.Nil(t, st.State)
	assert.NoError(t, st.Validate())
	assert.ErrorIs(t, Station{}.Validate(), ErrMissingStationIdentifier)
}

func TestInferTypeTag(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"Station identifier (string)", TypeString},
		{"Free text cloud descriptor", TypeString},
		{"WMO present weather code", TypeInt},
		{"Elevation as integer", TypeInt},
		{"Temperature in °C (float)", TypeDouble},
		{"Decimal pressure", TypeDouble},
		{"Boolean flag", TypeBool},
		{"UTC timestamp", TypeString},
		{"Observation date", TypeString},
		{"Temperature in °C", TypeDouble},
		// "string" outranks "date"
		{"Date as string", TypeString},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, InferTypeTag(tt.desc))
		})
	}
}

func TestNewSchemaField(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	id := NewSchemaField(FieldStationID, "Station identifier (string)", now)
	assert.True(t, id.Required)
	assert.True(t, id.Indexed)
	assert.Equal(t, TypeString, id.DataType)
	assert.Equal(t, now, id.AddedAt)

	city := NewSchemaField("city", "City name (text)", now)
	assert.False(t, city.Required)
	assert.True(t, city.Indexed)

	temp := NewSchemaField(FieldTemperature, "Temperature in °C", now)
	assert.False(t, temp.Required)
	assert.False(t, temp.Indexed)
}

func TestNowTimestamp(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)))
	defer SetClock(nil)

	assert.Equal(t, "2024-10-01T08:30:00Z", NowTimestamp())
}
