package domain

import (
	"testing"
	"time"
)

func TestClassStart_Valid(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	day := time.Date(2026, time.February, 2, 14, 0, 0, 0, loc)

	cases := []string{"10:30-12:00", "10:30 - 12:00", "10:30–12:00", " 10:30-12:00 "}
	for _, tr := range cases {
		start, canon, err := ClassStart(day, tr, loc)
		if err != nil {
			t.Fatalf("ClassStart(%q): %v", tr, err)
		}
		if canon != "10:30" {
			t.Fatalf("ClassStart(%q): want canonical 10:30, got %q", tr, canon)
		}
		want := time.Date(2026, time.February, 2, 10, 30, 0, 0, loc)
		if !start.Equal(want) {
			t.Fatalf("ClassStart(%q): want %v, got %v", tr, want, start)
		}
	}
}

func TestClassStart_Malformed(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, time.February, 2, 0, 0, 0, 0, loc)

	for _, tr := range []string{"", "10:30", "abc-def", "25:00-26:00", "10:70-12:00", "-"} {
		if _, _, err := ClassStart(day, tr, loc); err == nil {
			t.Fatalf("ClassStart(%q): expected error", tr)
		}
	}
}

func TestDayLabel(t *testing.T) {
	if got := DayLabel(time.Monday); got != "Понедельник" {
		t.Fatalf("want Понедельник, got %q", got)
	}
	if got := DayLabel(time.Sunday); got != "Воскресенье" {
		t.Fatalf("want Воскресенье, got %q", got)
	}
}
