// Package week handles plan week numbers of the form "2025-W04".
//
// A plan week is labelled with an ISO 8601 week but runs from the Saturday of
// that ISO week to the following Friday.
package week

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var pattern = regexp.MustCompile(`^(\d{4})-W(0[1-9]|[1-4]\d|5[0-3])$`)

// Week is a parsed week number.
type Week struct {
	Year int
	Num  int
}

// Parse validates s and splits it into year and week.
func Parse(s string) (Week, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Week{}, fmt.Errorf("invalid week format: %s", s)
	}
	year, _ := strconv.Atoi(m[1])
	num, _ := strconv.Atoi(m[2])
	return Week{Year: year, Num: num}, nil
}

// Valid reports whether s is a well-formed week number.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Num)
}

// WeeksInYear returns the number of ISO weeks in year (52 or 53).
func WeeksInYear(year int) int {
	// Dec 28 always falls in the last ISO week of its year.
	_, n := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return n
}

// Next returns the following week, rolling over to W01 of the next year.
func (w Week) Next() Week {
	if w.Num >= WeeksInYear(w.Year) {
		return Week{Year: w.Year + 1, Num: 1}
	}
	return Week{Year: w.Year, Num: w.Num + 1}
}

// Increment parses s and returns the following week number.
func Increment(s string) (string, error) {
	w, err := Parse(s)
	if err != nil {
		return "", err
	}
	return w.Next().String(), nil
}

// Of returns the plan week containing t. Days before Saturday belong to the
// previous ISO week.
func Of(t time.Time) Week {
	year, num := t.AddDate(0, 0, -5).ISOWeek()
	return Week{Year: year, Num: num}
}

// Current returns the plan week number containing now.
func Current(now time.Time) string {
	return Of(now).String()
}

// DateRange returns the Saturday and Friday bounding the week, at midnight in loc.
func (w Week) DateRange(loc *time.Location) (start, end time.Time) {
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7 // days since Monday
	monday := jan4.AddDate(0, 0, -offset+(w.Num-1)*7)
	start = monday.AddDate(0, 0, 5)
	end = start.AddDate(0, 0, 6)
	return start, end
}
