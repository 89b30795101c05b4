// Package markethours is the US equity session calendar (NYSE regular hours,
// weekends and exchange holidays) used to decide which daily bars are final.
package markethours

import (
	"time"
	_ "time/tzdata"
)

// NewYork is the exchange time zone.
var NewYork = mustLoad("America/New_York")

// Regular session hours in exchange time.
const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsWeekday returns true if t is Mon–Fri in exchange time.
func IsWeekday(t time.Time) bool {
	wd := t.In(NewYork).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t falls on a weekday that is not a holiday.
func IsTradingDay(t time.Time) bool {
	y, m, d := t.In(NewYork).Date()
	return IsSession(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// IsSession reports whether the session date d (a calendar day, as stored on
// bars) was a trading day. Only d's year, month and day are used.
func IsSession(d time.Time) bool {
	y, m, day := d.Date()
	wd := time.Date(y, m, day, 0, 0, 0, 0, time.UTC).Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !isHoliday(y, m, day)
}

// IsMarketOpen returns true if t is within regular trading hours.
func IsMarketOpen(t time.Time) bool {
	ny := t.In(NewYork)
	if !IsTradingDay(ny) {
		return false
	}
	hm := ny.Hour()*60 + ny.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// LastClosedSession returns the date (UTC midnight) of the most recent
// session whose close is at or before t.
func LastClosedSession(t time.Time) time.Time {
	ny := t.In(NewYork)
	d := time.Date(ny.Year(), ny.Month(), ny.Day(), 0, 0, 0, 0, time.UTC)
	closed := ny.Hour()*60+ny.Minute() >= CloseHour*60+CloseMinute
	if IsSession(d) && closed {
		return d
	}
	for i := 0; i < 15; i++ {
		d = d.AddDate(0, 0, -1)
		if IsSession(d) {
			return d
		}
	}
	return d
}

// SyncEnd is the exclusive end date that covers every final bar at t:
// the day after the last closed session.
func SyncEnd(t time.Time) time.Time {
	return LastClosedSession(t).AddDate(0, 0, 1)
}

// NextClose returns the next regular-session close strictly after t.
func NextClose(t time.Time) time.Time {
	ny := t.In(NewYork)
	d := time.Date(ny.Year(), ny.Month(), ny.Day(), CloseHour, CloseMinute, 0, 0, NewYork)
	for i := 0; i < 15; i++ {
		if d.After(ny) && IsTradingDay(d) {
			return d
		}
		next := d.AddDate(0, 0, 1)
		d = time.Date(next.Year(), next.Month(), next.Day(), CloseHour, CloseMinute, 0, 0, NewYork)
	}
	return d
}
