package datemath

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name string
		d    civil.Date
		f    Frequency
		n    int
		want civil.Date
	}{
		{"daily", date(2025, time.March, 30), Daily, 3, date(2025, time.April, 2)},
		{"weekly", date(2025, time.January, 1), Weekly, 2, date(2025, time.January, 15)},
		{"biweekly is two weekly steps", date(2025, time.January, 1), Biweekly, 1, date(2025, time.January, 15)},
		{"monthly", date(2025, time.April, 15), Monthly, 1, date(2025, time.May, 15)},
		{"monthly clamps to short month", date(2025, time.January, 31), Monthly, 1, date(2025, time.February, 28)},
		{"monthly clamps to leap february", date(2024, time.January, 31), Monthly, 1, date(2024, time.February, 29)},
		{"monthly across year end", date(2024, time.November, 30), Monthly, 3, date(2025, time.February, 28)},
		{"yearly", date(2024, time.February, 29), Yearly, 1, date(2025, time.February, 28)},
		{"monthly backwards", date(2025, time.March, 31), Monthly, -1, date(2025, time.February, 28)},
		{"monthly backwards across year", date(2025, time.January, 15), Monthly, -2, date(2024, time.November, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Add(tt.d, tt.f, tt.n)
			if got != tt.want {
				t.Errorf("Add(%v, %s, %d) = %v, want %v", tt.d, tt.f, tt.n, got, tt.want)
			}
		})
	}
}

func TestMonthWindow(t *testing.T) {
	d := date(2025, time.February, 14)
	if got := MonthStart(d); got != date(2025, time.February, 1) {
		t.Errorf("MonthStart = %v", got)
	}
	if got := MonthEnd(d); got != date(2025, time.February, 28) {
		t.Errorf("MonthEnd = %v", got)
	}
	if got := MonthEnd(date(2024, time.February, 1)); got != date(2024, time.February, 29) {
		t.Errorf("MonthEnd leap = %v", got)
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		a, b civil.Date
		want int
	}{
		{date(2025, time.January, 31), date(2025, time.March, 1), 2},
		{date(2025, time.March, 1), date(2025, time.January, 31), -2},
		{date(2024, time.December, 5), date(2025, time.January, 5), 1},
		{date(2025, time.June, 1), date(2025, time.June, 30), 0},
	}
	for _, tt := range tests {
		if got := MonthsBetween(tt.a, tt.b); got != tt.want {
			t.Errorf("MonthsBetween(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFrequencyValid(t *testing.T) {
	for _, f := range []Frequency{Daily, Weekly, Biweekly, Monthly, Yearly} {
		if !f.Valid() {
			t.Errorf("%s should be valid", f)
		}
	}
	if Frequency("fortnightly").Valid() {
		t.Error("unknown frequency accepted")
	}
}
