package domain

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DayLayout is the calendar-date format used at the store boundary.
const DayLayout = "2006-01-02"

var (
	// ErrValidation is the parent of every rejected-input error.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidValue indicates that a raw value could not be parsed as a decimal number.
	ErrInvalidValue = fmt.Errorf("%w: value must be a decimal number like 80.5", ErrValidation)
	// ErrInvalidDate indicates that a raw date was not in YYYY-MM-DD form.
	ErrInvalidDate = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
)

// Entry is a single weight measurement in kilograms.
type Entry struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Day returns the entry date formatted as YYYY-MM-DD.
func (e Entry) Day() string {
	return e.Date.Format(DayLayout)
}

// NewEntry builds an entry with a freshly generated id.
func NewEntry(date time.Time, value float64) Entry {
	return Entry{ID: uuid.NewString(), Date: NormalizeDate(date), Value: value}
}

// NormalizeDate drops the time of day, keeping the calendar date as UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseValue parses raw user text into a kilogram value. Only dot-separated
// decimals are accepted, whatever the display locale.
func ParseValue(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if !decimalPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	return v, nil
}

// ParseDay parses a YYYY-MM-DD calendar date.
func ParseDay(raw string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// SortByDate returns a copy of entries ordered ascending by date. Entries that
// share a date keep their relative order.
func SortByDate(entries []Entry) []Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// Ordered yields entries ascending by date. The ordering is computed again on
// every iteration.
func Ordered(entries []Entry) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range SortByDate(entries) {
			if !yield(e) {
				return
			}
		}
	}
}

// Difference returns the last value minus the first value in date order, or 0
// when there are no entries.
func Difference(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sorted := SortByDate(entries)
	return sorted[len(sorted)-1].Value - sorted[0].Value
}

// IndexOf returns the position of the entry with the given id, or -1.
func IndexOf(entries []Entry, id string) int {
	return slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
}
