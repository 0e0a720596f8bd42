package utils

import (
	"time"
)

// Eastern is the US/Eastern location used by NYSE and NASDAQ.
var Eastern *time.Location

func init() {
	var err error
	Eastern, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST if tz database is not available
		Eastern = time.FixedZone("EST", -5*60*60)
	}
}

// NowEastern returns the current time in US/Eastern.
func NowEastern() time.Time {
	return time.Now().In(Eastern)
}

// MarketOpenTime returns the regular session open (9:30 AM ET) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, Eastern)
}

// MarketCloseTime returns the regular session close (4:00 PM ET) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, Eastern)
}

// PreMarketStart returns the pre-market session start (4:00 AM ET).
func PreMarketStart(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 4, 0, 0, 0, Eastern)
}

// IsTradingDay checks if the given date is a trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(Eastern)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// IsTradingHoliday checks if the given date is an NYSE holiday.
// This list should be updated annually.
func IsTradingHoliday(t time.Time) bool {
	_, isHoliday := nyseHolidays2026[t.In(Eastern).Format("2006-01-02")]
	return isHoliday
}

// NYSE holidays for 2026 (update annually).
var nyseHolidays2026 = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// FormatDateTimeEastern formats a time.Time as "2006-01-02 15:04:05 ET".
func FormatDateTimeEastern(t time.Time) string {
	return t.In(Eastern).Format("2006-01-02 15:04:05") + " ET"
}

// FormatClockEastern formats a bar timestamp as "15:04" in US/Eastern.
func FormatClockEastern(t time.Time) string {
	return t.In(Eastern).Format("15:04")
}

// MarketStatus returns the current market status string.
func MarketStatus() string {
	return MarketStatusAt(NowEastern())
}

// MarketStatusAt returns the market status at the given instant.
func MarketStatusAt(now time.Time) string {
	now = now.In(Eastern)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if holiday, ok := nyseHolidays2026[now.Format("2006-01-02")]; ok {
		return "CLOSED (" + holiday + ")"
	}

	switch {
	case now.Before(PreMarketStart(now)):
		return "CLOSED"
	case now.Before(MarketOpenTime(now)):
		return "PRE-MARKET"
	case now.Before(MarketCloseTime(now)):
		return "OPEN"
	default:
		return "AFTER-HOURS"
	}
}
