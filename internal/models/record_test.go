package models

import (
	"errors"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestPlaceResolution_DisplayName(t *testing.T) {
	tests := []struct {
		name       string
		resolution PlaceResolution
		want       string
	}{
		{
			name:       "resolved name passes through",
			resolution: PlaceResolution{Name: "Berlin", Status: ResolutionOK},
			want:       "Berlin",
		},
		{
			name:       "not found degrades to sentinel",
			resolution: PlaceResolution{Status: ResolutionNotFound},
			want:       SentinelPlaceName,
		},
		{
			name:       "request error degrades to sentinel",
			resolution: PlaceResolution{Status: ResolutionRequestError},
			want:       SentinelPlaceName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resolution.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewWeatherRecord(t *testing.T) {
	tests := []struct {
		name        string
		place       PlaceResolution
		coord       Coordinate
		obs         Observation
		checkValues func(*testing.T, *WeatherRecord)
	}{
		{
			name:  "all fields present",
			place: PlaceResolution{Name: "Berlin", Status: ResolutionOK},
			coord: Coordinate{Latitude: 52.52, Longitude: 13.41},
			obs: Observation{
				TemperatureCelsius: 9.5,
				WindSpeedKmh:       12.3,
				HumidityPercent:    floatPtr(55),
				UVIndex:            floatPtr(4),
			},
			checkValues: func(t *testing.T, rec *WeatherRecord) {
				if rec.City != "Berlin" {
					t.Errorf("City = %q, want %q", rec.City, "Berlin")
				}
				if rec.Latitude != 52.52 || rec.Longitude != 13.41 {
					t.Errorf("coordinate = (%v, %v), want (52.52, 13.41)", rec.Latitude, rec.Longitude)
				}
				if rec.Temperature == nil || *rec.Temperature != 9.5 {
					t.Errorf("Temperature = %v, want 9.5", rec.Temperature)
				}
				if rec.WindSpeed == nil || *rec.WindSpeed != 12.3 {
					t.Errorf("WindSpeed = %v, want 12.3", rec.WindSpeed)
				}
				if rec.Humidity == nil || *rec.Humidity != 55 {
					t.Errorf("Humidity = %v, want 55", rec.Humidity)
				}
				if rec.UVIndex == nil || *rec.UVIndex != 4 {
					t.Errorf("UVIndex = %v, want 4", rec.UVIndex)
				}
			},
		},
		{
			name:  "absent optional fields stay nil",
			place: PlaceResolution{Name: "Berlin", Status: ResolutionOK},
			coord: Coordinate{Latitude: 52.52, Longitude: 13.41},
			obs: Observation{
				TemperatureCelsius: -3.1,
				WindSpeedKmh:       7.0,
			},
			checkValues: func(t *testing.T, rec *WeatherRecord) {
				if rec.Humidity != nil {
					t.Errorf("Humidity = %v, want nil", rec.Humidity)
				}
				if rec.UVIndex != nil {
					t.Errorf("UVIndex = %v, want nil", rec.UVIndex)
				}
				if rec.Temperature == nil || *rec.Temperature != -3.1 {
					t.Errorf("Temperature = %v, want -3.1", rec.Temperature)
				}
			},
		},
		{
			name:  "unresolved place carries sentinel city",
			place: PlaceResolution{Status: ResolutionRequestError},
			coord: Coordinate{Latitude: 0, Longitude: 0},
			obs:   Observation{TemperatureCelsius: 20},
			checkValues: func(t *testing.T, rec *WeatherRecord) {
				if rec.City != SentinelPlaceName {
					t.Errorf("City = %q, want %q", rec.City, SentinelPlaceName)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewWeatherRecord(tt.place, tt.coord, &tt.obs)
			tt.checkValues(t, rec)
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon string
		want     Coordinate
		wantErr  bool
	}{
		{name: "plain values", lat: "52.52", lon: "13.41", want: Coordinate{52.52, 13.41}},
		{name: "surrounding whitespace", lat: " 40.71 ", lon: "\t-74.01\n", want: Coordinate{40.71, -74.01}},
		{name: "negative integer degrees", lat: "-90", lon: "180", want: Coordinate{-90, 180}},
		{name: "non-numeric latitude", lat: "north", lon: "13.41", wantErr: true},
		{name: "non-numeric longitude", lat: "52.52", lon: "east", wantErr: true},
		{name: "empty input", lat: "", lon: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinate(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCoordinate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var invalid *InvalidInputError
				if !errors.As(err, &invalid) {
					t.Errorf("error type = %T, want *InvalidInputError", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseCoordinate() = %v, want %v", got, tt.want)
			}
		})
	}
}
