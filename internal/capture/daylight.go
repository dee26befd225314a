package capture

import (
	"time"

	"github.com/bradfitz/latlong"
	sunrise "github.com/nathan-osman/go-sunrise"
)

// The window opens before sunrise and closes after sunset so the sequence
// keeps its twilight frames.
const (
	dawnMargin = 35 * time.Minute
	duskMargin = 45 * time.Minute
)

// DaylightGate skips ticks outside the local daylight window, leaving
// battery cameras asleep at night.
type DaylightGate struct {
	Latitude  float64
	Longitude float64
}

// Window returns the capture window for the day now falls on. The
// calendar day is resolved in the timezone the coordinates belong to, so
// a gate far from the host's zone still picks the right sunrise. ok is
// false on days the sun never rises or sets there.
func (g *DaylightGate) Window(now time.Time) (start, end time.Time, ok bool) {
	local := now
	if zone := latlong.LookupZoneName(g.Latitude, g.Longitude); zone != "" {
		if loc, err := time.LoadLocation(zone); err == nil {
			local = now.In(loc)
		}
	}

	rise, set := sunrise.SunriseSunset(g.Latitude, g.Longitude, local.Year(), local.Month(), local.Day())
	if rise.IsZero() && set.IsZero() {
		return time.Time{}, time.Time{}, false
	}

	return rise.Add(-dawnMargin), set.Add(duskMargin), true
}

// Allow reports whether now falls inside the daylight window.
func (g *DaylightGate) Allow(now time.Time) bool {
	start, end, ok := g.Window(now)
	if !ok {
		// Polar day or night. Capturing a dark frame beats a gap.
		return true
	}
	return now.After(start) && now.Before(end)
}
