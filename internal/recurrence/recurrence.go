// Package recurrence computes when recurring income and expense templates
// produce their next dated transactions.
package recurrence

import (
	"cloud.google.com/go/civil"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
)

// NextOccurrence steps the anchor date forward by the given number of
// intervals. Biweekly advances two weeks per interval.
func NextOccurrence(anchor civil.Date, f datemath.Frequency, intervals int) (civil.Date, error) {
	if !f.Valid() {
		return civil.Date{}, errs.Validation("unknown recurrence frequency %q", f)
	}
	if intervals < 1 {
		return civil.Date{}, errs.Validation("intervals must be at least 1, got %d", intervals)
	}
	return datemath.Add(anchor, f, intervals), nil
}

// Anchor returns the date the recurrence will next produce from. When the
// template has not generated any dated item yet, the anchor is the later
// of its start date and today; once it has, the cached next occurrence is
// authoritative. The result never precedes the start date.
func Anchor(rec domain.Recurrence, today civil.Date) civil.Date {
	if rec.NextOccurrence.IsZero() {
		return datemath.Max(rec.StartDate, today)
	}
	return datemath.Max(rec.StartDate, rec.NextOccurrence)
}

// Upcoming previews the next count occurrence dates of the template,
// stopping early at its end date. An inactive template previews the same
// dates as an active one: toggling activity only changes whether future
// generation is scheduled, never what was or will be generated.
func Upcoming(rec domain.Recurrence, count int, today civil.Date) ([]civil.Date, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, errs.Validation("count must be at least 1, got %d", count)
	}

	dates := make([]civil.Date, 0, count)
	next := Anchor(rec, today)
	for i := 0; i < count; i++ {
		if rec.EndDate != nil && next.After(*rec.EndDate) {
			break
		}
		dates = append(dates, next)
		next = datemath.Add(next, rec.Frequency, 1)
	}
	return dates, nil
}

// Consume advances the cached next occurrence by exactly one interval,
// returning the updated template. The date strictly advances on every
// consumption.
func Consume(rec domain.Recurrence, today civil.Date) (domain.Recurrence, error) {
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	anchor := Anchor(rec, today)
	rec.NextOccurrence = datemath.Add(anchor, rec.Frequency, 1)
	return rec, nil
}
