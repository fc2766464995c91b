// Package dates counts elapsed days between timestamps
package dates

import "time"

// DaysSince counts whole 24 hour days from from to now, in UTC. Dates in the
// future count as zero. The count is built from calendar dates, so it stays
// exact for dates centuries apart.
func DaysSince(from, now time.Time) int {
	from, now = from.UTC(), now.UTC()

	days := civilDay(now) - civilDay(from)
	if days > 0 && clock(from) > clock(now) {
		days--
	}
	if days < 0 {
		return 0
	}
	return int(days)
}

// civilDay is the number of days from 1970-01-01 to t's date in the
// proleptic Gregorian calendar
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	year, month := int64(y), int64(m)
	if month <= 2 {
		year--
	}

	era := year / 400
	if year < 0 && year%400 != 0 {
		era--
	}
	yearOfEra := year - era*400
	dayOfYear := (153*((month+9)%12)+2)/5 + int64(d) - 1
	dayOfEra := yearOfEra*365 + yearOfEra/4 - yearOfEra/100 + dayOfYear

	return era*146097 + dayOfEra - 719468
}

// clock is the time of day as an offset from midnight
func clock(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
