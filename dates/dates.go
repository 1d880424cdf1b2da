// Package dates handles the day/month birthdays used throughout the bot.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format is the user-facing and storage format of a birthday.
const (
	Format  = "DD/MM"
	Example = "25/12"
)

// ErrInvalidFormat is returned when a birthday can't be parsed.
var ErrInvalidFormat = errors.New("invalid date format")

// DefaultLocation is the fixed UTC-3 offset "today" is decided in unless
// configured otherwise.
var DefaultLocation = time.FixedZone("UTC-3", -3*60*60)

var dayMonthPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)

// days in each month, allowing 29 days for February.
var monthLength = [...]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DayMonth is a yearless calendar date.
type DayMonth struct {
	Day   int
	Month time.Month
}

// Parse validates a DD/MM string.
func Parse(input string) (DayMonth, error) {
	match := dayMonthPattern.FindStringSubmatch(strings.TrimSpace(input))
	if match == nil {
		return DayMonth{}, fmt.Errorf("%w: %q", ErrInvalidFormat, input)
	}

	day, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])

	if month < 1 || month > 12 || day < 1 || day > monthLength[month] {
		return DayMonth{}, fmt.Errorf("%w: %q", ErrInvalidFormat, input)
	}

	return DayMonth{Day: day, Month: time.Month(month)}, nil
}

// FromTime returns the day and month of t in t's location.
func FromTime(t time.Time) DayMonth {
	_, month, day := t.Date()
	return DayMonth{Day: day, Month: month}
}

// String formats the date as zero-padded DD/MM.
func (d DayMonth) String() string {
	return fmt.Sprintf("%02d/%02d", d.Day, int(d.Month))
}

// In returns the occurrence of d in the given year at midnight in loc.
// 29/02 falls on 28/02 in non-leap years.
func (d DayMonth) In(year int, loc *time.Location) time.Time {
	day := d.Day
	if d.Month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, d.Month, day, 0, 0, 0, 0, loc)
}

// OccursOn reports whether t is this birthday.
func (d DayMonth) OccursOn(t time.Time) bool {
	year, month, day := t.Date()
	occurrence := d.In(year, t.Location())
	return occurrence.Month() == month && occurrence.Day() == day
}

// Less orders dates chronologically within a year.
func (d DayMonth) Less(other DayMonth) bool {
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// DaysUntilNext returns the number of whole days from today until the next
// occurrence of target, 0 when target is today.
func DaysUntilNext(today time.Time, target DayMonth) int {
	year, month, day := today.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, today.Location())

	next := target.In(year, today.Location())
	if next.Before(start) {
		next = target.In(year+1, today.Location())
	}

	// Round rather than truncate so DST shifts don't lose a day.
	return int((next.Sub(start) + 12*time.Hour) / (24 * time.Hour))
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
