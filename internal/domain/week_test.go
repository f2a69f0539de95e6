package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestWeekParity_ISOWeeks(t *testing.T) {
	cases := []struct {
		name string
		d    time.Time
		want int
	}{
		// 2026-01-01 is a Thursday, so it belongs to ISO week 1.
		{"week 1", date(2026, time.January, 1), 1},
		{"week 2", date(2026, time.January, 5), 2},
		{"week 5", date(2026, time.January, 26), 1},
		{"week 6", date(2026, time.February, 2), 2},
		// Dec 29 2025 is a Monday and already ISO 2026-W01,
		// a naive day-of-year divide would get this wrong.
		{"year boundary", date(2025, time.December, 29), 1},
		{"week 52", date(2023, time.December, 29), 2},
		{"week 53", date(2020, time.December, 31), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WeekParity(tc.d); got != tc.want {
				t.Fatalf("WeekParity(%s): want %d, got %d", tc.d.Format("2006-01-02"), tc.want, got)
			}
		})
	}
}
