package capture

import (
	"testing"
	"time"

	sunrise "github.com/nathan-osman/go-sunrise"
)

// London on the 2026 summer solstice: sunrise around 03:43 UTC, sunset
// around 20:21 UTC.
var london = &DaylightGate{Latitude: 51.5074, Longitude: -0.1278}

func TestDaylightWindowMargins(t *testing.T) {
	noon := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)

	start, end, ok := london.Window(noon)
	if !ok {
		t.Fatal("window: got ok=false for London in June")
	}

	rise, set := sunrise.SunriseSunset(london.Latitude, london.Longitude, 2026, time.June, 21)
	if wantStart := rise.Add(-dawnMargin); !start.Equal(wantStart) {
		t.Errorf("start: got %v, want %v", start, wantStart)
	}
	if wantEnd := set.Add(duskMargin); !end.Equal(wantEnd) {
		t.Errorf("end: got %v, want %v", end, wantEnd)
	}
}

func TestDaylightAllow(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"noon", time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC), true},
		{"deep night", time.Date(2026, 6, 21, 1, 0, 0, 0, time.UTC), false},
		{"after dusk margin", time.Date(2026, 6, 21, 22, 30, 0, 0, time.UTC), false},
		{"within dawn margin", time.Date(2026, 6, 21, 3, 30, 0, 0, time.UTC), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := london.Allow(tc.at); got != tc.want {
				t.Errorf("allow at %v: got %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestDaylightPolarDays(t *testing.T) {
	// Longyearbyen: midnight sun in June, polar night in January. The
	// gate stays open on such days rather than skipping for months.
	svalbard := &DaylightGate{Latitude: 78.2232, Longitude: 15.6267}

	midsummer := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	if _, _, ok := svalbard.Window(midsummer); ok {
		t.Error("window: got ok=true during midnight sun")
	}
	if !svalbard.Allow(midsummer) {
		t.Error("allow: got false during midnight sun, want true")
	}

	polarNight := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	if !svalbard.Allow(polarNight) {
		t.Error("allow: got false during polar night, want true")
	}
}
