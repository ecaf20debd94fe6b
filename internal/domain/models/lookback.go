package models

import "time"

// Lookback selects how much history a request covers.
type Lookback string

const (
	Lookback1Y  Lookback = "1y"
	Lookback3Y  Lookback = "3y"
	Lookback5Y  Lookback = "5y"
	Lookback10Y Lookback = "10y"
	LookbackMax Lookback = "max"
)

// IsValid reports whether l is one of the supported windows.
func (l Lookback) IsValid() bool {
	switch l {
	case Lookback1Y, Lookback3Y, Lookback5Y, Lookback10Y, LookbackMax:
		return true
	default:
		return false
	}
}

// NormalizeLookback converts a raw string to a supported window, or def.
func NormalizeLookback(s string, def Lookback) Lookback {
	l := Lookback(s)
	if l.IsValid() {
		return l
	}
	if def.IsValid() {
		return def
	}
	return LookbackMax
}

// Start maps the window to its first included day. Max returns the zero time.
func (l Lookback) Start(now time.Time) time.Time {
	years := 0
	switch l {
	case Lookback1Y:
		years = 1
	case Lookback3Y:
		years = 3
	case Lookback5Y:
		years = 5
	case Lookback10Y:
		years = 10
	default:
		return time.Time{}
	}
	u := now.UTC()
	return time.Date(u.Year()-years, u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
