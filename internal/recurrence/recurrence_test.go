package recurrence

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
)

func d(y int, m time.Month, day int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: day}
}

func template(freq datemath.Frequency, start civil.Date) domain.Recurrence {
	return domain.Recurrence{
		ID:        "rec-1",
		Type:      domain.TypeExpense,
		Amount:    decimal.NewFromInt(100),
		Frequency: freq,
		StartDate: start,
		Active:    true,
	}
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		anchor    civil.Date
		freq      datemath.Frequency
		intervals int
		want      civil.Date
	}{
		{"daily", d(2025, time.May, 30), datemath.Daily, 3, d(2025, time.June, 2)},
		{"weekly", d(2025, time.May, 1), datemath.Weekly, 1, d(2025, time.May, 8)},
		{"biweekly equals two weekly steps", d(2025, time.May, 1), datemath.Biweekly, 1, d(2025, time.May, 15)},
		{"monthly clamps", d(2025, time.January, 31), datemath.Monthly, 1, d(2025, time.February, 28)},
		{"yearly", d(2025, time.May, 1), datemath.Yearly, 2, d(2027, time.May, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.anchor, tt.freq, tt.intervals)
			if err != nil {
				t.Fatalf("NextOccurrence: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextOccurrence = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := NextOccurrence(d(2025, time.May, 1), "hourly", 1); err == nil {
		t.Error("expected error for unknown frequency")
	}
	if _, err := NextOccurrence(d(2025, time.May, 1), datemath.Daily, 0); err == nil {
		t.Error("expected error for zero intervals")
	}
}

func TestUpcomingAnchorsAtStartOrToday(t *testing.T) {
	today := d(2025, time.June, 10)

	// Not yet started: anchor is the future start date.
	rec := template(datemath.Monthly, d(2025, time.August, 5))
	dates, err := Upcoming(rec, 3, today)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	want := []civil.Date{d(2025, time.August, 5), d(2025, time.September, 5), d(2025, time.October, 5)}
	assertDates(t, dates, want)

	// Started in the past, nothing generated yet: anchor is today.
	rec = template(datemath.Weekly, d(2025, time.January, 1))
	dates, err = Upcoming(rec, 2, today)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	assertDates(t, dates, []civil.Date{today, d(2025, time.June, 17)})

	// Cached next occurrence wins once present.
	rec.NextOccurrence = d(2025, time.July, 1)
	dates, err = Upcoming(rec, 2, today)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	assertDates(t, dates, []civil.Date{d(2025, time.July, 1), d(2025, time.July, 8)})
}

func TestUpcomingStopsAtEndDate(t *testing.T) {
	end := d(2025, time.July, 31)
	rec := template(datemath.Monthly, d(2025, time.June, 15))
	rec.EndDate = &end

	dates, err := Upcoming(rec, 5, d(2025, time.June, 1))
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	assertDates(t, dates, []civil.Date{d(2025, time.June, 15), d(2025, time.July, 15)})
}

func TestConsumeStrictlyAdvances(t *testing.T) {
	today := d(2025, time.June, 10)
	rec := template(datemath.Monthly, d(2025, time.January, 3))
	rec.NextOccurrence = d(2025, time.June, 3)

	prev := rec.NextOccurrence
	for i := 0; i < 4; i++ {
		var err error
		rec, err = Consume(rec, today)
		if err != nil {
			t.Fatalf("Consume: %v", err)
		}
		if !rec.NextOccurrence.After(prev) {
			t.Fatalf("next occurrence %v did not advance past %v", rec.NextOccurrence, prev)
		}
		prev = rec.NextOccurrence
	}
	if want := d(2025, time.October, 3); rec.NextOccurrence != want {
		t.Errorf("after 4 consumptions next = %v, want %v", rec.NextOccurrence, want)
	}
}

func assertDates(t *testing.T, got, want []civil.Date) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d dates %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("date[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
