package datefmt

import (
	"errors"
	"testing"
	"time"

	"github.com/dailypush/inkdash/internal/locale"
)

func TestWeekdayOfMatchesTime(t *testing.T) {
	start := time.Date(1900, time.January, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2200, time.January, 1, 12, 0, 0, 0, time.UTC)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		got := WeekdayOf(d.Year(), int(d.Month()), d.Day())
		if got != int(d.Weekday()) {
			t.Fatalf("WeekdayOf(%s) = %d; want %d", d.Format("2006-01-02"), got, int(d.Weekday()))
		}
	}
}

func TestWeekdayOfKnownDates(t *testing.T) {
	tests := []struct {
		y, m, d int
		want    int
	}{
		{2025, 10, 4, 6},
		{2000, 1, 1, 6},
		{2000, 2, 29, 2},
		{2024, 3, 1, 5},
		{2026, 10, 18, 0},
	}
	for _, tt := range tests {
		if got := WeekdayOf(tt.y, tt.m, tt.d); got != tt.want {
			t.Errorf("WeekdayOf(%d, %d, %d) = %d; want %d", tt.y, tt.m, tt.d, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name              string
		loc               locale.Table
		weekday, day, mon int
		want              string
	}{
		{"english", locale.English, 6, 4, 9, "Saturday 04 October"},
		{"french", locale.French, 1, 15, 1, "Lundi 15 Février"},
		{"two digit day", locale.English, 0, 31, 11, "Sunday 31 December"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.loc, tt.weekday, tt.day, tt.mon); got != tt.want {
				t.Errorf("FormatDate() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestForecastWeekday(t *testing.T) {
	if got := ForecastWeekday(5, 4); got != 2 {
		t.Errorf("ForecastWeekday(5, 4) = %d; want 2", got)
	}
	for today := 0; today < 7; today++ {
		for offset := 0; offset <= 4; offset++ {
			got := ForecastWeekday(today, offset)
			if got < 0 || got > 6 {
				t.Fatalf("ForecastWeekday(%d, %d) = %d; out of range", today, offset, got)
			}
			if want := (today + offset) % 7; got != want {
				t.Fatalf("ForecastWeekday(%d, %d) = %d; want %d", today, offset, got, want)
			}
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		y, m, d int
		wantErr bool
	}{
		{in: "2025-10-04 13:45", y: 2025, m: 10, d: 4},
		{in: "2025-10-04T13:45", y: 2025, m: 10, d: 4},
		{in: "2025-10-04", y: 2025, m: 10, d: 4},
		{in: "2025/10/04 13:45", wantErr: true},
		{in: "2025-13-04 13:45", wantErr: true},
		{in: "2025-1", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		y, m, d, err := ParseDate(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrBadTimestamp) {
				t.Errorf("ParseDate(%q) err = %v; want ErrBadTimestamp", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if y != tt.y || m != tt.m || d != tt.d {
			t.Errorf("ParseDate(%q) = %d-%d-%d; want %d-%d-%d", tt.in, y, m, d, tt.y, tt.m, tt.d)
		}
	}
}

func TestClockOf(t *testing.T) {
	tests := map[string]string{
		"2025-10-04 13:45": "13:45",
		"2025-10-04T07:00": "07:00",
		"2025-10-04":       "",
		"2025-10-04 1345":  "",
	}
	for in, want := range tests {
		if got := ClockOf(in); got != want {
			t.Errorf("ClockOf(%q) = %q; want %q", in, got, want)
		}
	}
}
