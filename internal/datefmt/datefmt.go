// Package datefmt does the calendar arithmetic the dashboard needs without
// pulling in time zone data: weekday from a civil date, localized date
// labels, and forecast day labels.
package datefmt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dailypush/inkdash/internal/locale"
)

var ErrBadTimestamp = errors.New("datefmt: malformed timestamp")

// WeekdayOf returns the weekday of a Gregorian date, 0 = Sunday.
func WeekdayOf(year, month, day int) int {
	if month < 3 {
		month += 12
		year--
	}
	k := year % 100
	j := year / 100
	// Zeller: 0 = Saturday.
	h := (day + 13*(month+1)/5 + k + k/4 + j/4 + 5*j) % 7
	return (h + 6) % 7
}

// FormatDate renders "<Weekday> <DD> <Month>". monthIndex is 0-based.
func FormatDate(loc locale.Table, weekday, day, monthIndex int) string {
	return fmt.Sprintf("%s %02d %s", loc.Days[wrap(weekday, 7)], day, loc.Months[wrap(monthIndex, 12)])
}

// ForecastWeekday is the weekday index offset days after today.
func ForecastWeekday(today, offset int) int {
	return wrap(today+offset, 7)
}

// ParseDate extracts the civil date from "YYYY-MM-DD HH:MM" or the
// ISO form with a T separator.
func ParseDate(ts string) (year, month, day int, err error) {
	if len(ts) < 10 || ts[4] != '-' || ts[7] != '-' {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
	}
	if year, err = strconv.Atoi(ts[0:4]); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: year in %q", ErrBadTimestamp, ts)
	}
	if month, err = strconv.Atoi(ts[5:7]); err != nil || month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("%w: month in %q", ErrBadTimestamp, ts)
	}
	if day, err = strconv.Atoi(ts[8:10]); err != nil || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("%w: day in %q", ErrBadTimestamp, ts)
	}
	return year, month, day, nil
}

// ClockOf returns the "HH:MM" part of a timestamp, or "" if it has none.
func ClockOf(ts string) string {
	if len(ts) < 16 || (ts[10] != ' ' && ts[10] != 'T') || ts[13] != ':' {
		return ""
	}
	return ts[11:16]
}

func wrap(v, n int) int {
	return ((v % n) + n) % n
}
