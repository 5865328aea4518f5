package week

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	w, err := Parse("2025-W04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Year != 2025 || w.Num != 4 {
		t.Fatalf("expected 2025/4, got %d/%d", w.Year, w.Num)
	}

	for _, bad := range []string{"", "2025-W00", "2025-W54", "2025-4", "25-W04", "2025-w04", " 2025-W04"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
		if Valid(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}

func TestWeeksInYear(t *testing.T) {
	cases := map[int]int{2015: 53, 2020: 53, 2021: 52, 2024: 52, 2025: 52, 2026: 53}
	for year, want := range cases {
		if got := WeeksInYear(year); got != want {
			t.Errorf("WeeksInYear(%d) = %d, want %d", year, got, want)
		}
	}
}

func TestIncrement(t *testing.T) {
	cases := map[string]string{
		"2025-W04": "2025-W05",
		"2025-W09": "2025-W10",
		"2025-W52": "2026-W01",
		"2026-W52": "2026-W53",
		"2026-W53": "2027-W01",
	}
	for in, want := range cases {
		got, err := Increment(in)
		if err != nil {
			t.Fatalf("Increment(%s): %v", in, err)
		}
		if got != want {
			t.Errorf("Increment(%s) = %s, want %s", in, got, want)
		}
	}

	if _, err := Increment("nope"); err == nil {
		t.Fatal("expected error for malformed week")
	}
}

func TestCurrent_SaturdayBoundary(t *testing.T) {
	// 2025-W04 runs Mon 20 Jan .. Sun 26 Jan; the plan week starts Sat 25 Jan.
	fri := time.Date(2025, time.January, 24, 23, 59, 0, 0, time.UTC)
	sat := time.Date(2025, time.January, 25, 0, 0, 0, 0, time.UTC)
	nextFri := time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)

	if got := Current(fri); got != "2025-W03" {
		t.Errorf("Friday: expected 2025-W03, got %s", got)
	}
	if got := Current(sat); got != "2025-W04" {
		t.Errorf("Saturday: expected 2025-W04, got %s", got)
	}
	if got := Current(nextFri); got != "2025-W04" {
		t.Errorf("following Friday: expected 2025-W04, got %s", got)
	}
}

func TestCurrent_YearBoundary(t *testing.T) {
	// Thu 1 Jan 2026 is in ISO 2026-W01, but before that week's Saturday.
	d := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC)
	if got := Current(d); got != "2025-W52" {
		t.Fatalf("expected 2025-W52, got %s", got)
	}
}

func TestDateRange(t *testing.T) {
	w, _ := Parse("2025-W04")
	start, end := w.DateRange(time.UTC)

	if start.Weekday() != time.Saturday || end.Weekday() != time.Friday {
		t.Fatalf("expected Saturday..Friday, got %s..%s", start.Weekday(), end.Weekday())
	}
	if start.Format("2006-01-02") != "2025-01-25" {
		t.Errorf("expected start 2025-01-25, got %s", start.Format("2006-01-02"))
	}
	if end.Format("2006-01-02") != "2025-01-31" {
		t.Errorf("expected end 2025-01-31, got %s", end.Format("2006-01-02"))
	}

	// Every day in the range maps back to the same week.
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if got := Of(d); got != w {
			t.Errorf("%s: expected %s, got %s", d.Format("2006-01-02"), w, got)
		}
	}
}
