// Package datemath provides calendar arithmetic on date-only values.
//
// Every billing, installment and recurrence date in the engine is a
// civil.Date. Mixing date-only values with time.Time caused off-by-one
// bugs around month boundaries in earlier iterations, so time.Time only
// appears here at the "what day is it" edge.
package datemath

import (
	"time"

	"cloud.google.com/go/civil"
)

// Frequency is the interval at which a recurrence or installment repeats.
type Frequency string

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Yearly:
		return true
	}
	return false
}

// Add steps d forward by n intervals of the given frequency. Monthly and
// yearly steps clamp to the last day of short target months, so Jan 31 + 1
// month is Feb 28 (or 29), never Mar 3. Biweekly is two weekly steps.
func Add(d civil.Date, f Frequency, n int) civil.Date {
	switch f {
	case Daily:
		return d.AddDays(n)
	case Weekly:
		return d.AddDays(7 * n)
	case Biweekly:
		return d.AddDays(14 * n)
	case Monthly:
		return AddMonths(d, n)
	case Yearly:
		return AddMonths(d, 12*n)
	}
	return d
}

// AddMonths adds n calendar months to d, clamping the day to the length of
// the target month.
func AddMonths(d civil.Date, n int) civil.Date {
	// Work in zero-based months to survive year wrap in both directions.
	months := int(d.Month) - 1 + n
	year := d.Year + months/12
	month := months % 12
	if month < 0 {
		month += 12
		year--
	}
	out := civil.Date{Year: year, Month: time.Month(month + 1), Day: d.Day}
	if last := DaysInMonth(out.Year, out.Month); out.Day > last {
		out.Day = last
	}
	return out
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthStart returns the first day of d's month.
func MonthStart(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// MonthEnd returns the last day of d's month.
func MonthEnd(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: DaysInMonth(d.Year, d.Month)}
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b civil.Date) bool {
	return a.Year == b.Year && a.Month == b.Month
}

// MonthsBetween returns the whole-month distance from a's month to b's month,
// ignoring the day. Negative when b is earlier.
func MonthsBetween(a, b civil.Date) int {
	return (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
}

// DaysBetween returns b − a in days.
func DaysBetween(a, b civil.Date) int {
	return b.DaysSince(a)
}

// Today returns the current date in the given location.
func Today(loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(time.Now().In(loc))
}

// Max returns the later of a and b.
func Max(a, b civil.Date) civil.Date {
	if b.After(a) {
		return b
	}
	return a
}
