package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dollarsToCents accepts "200", "$1,250.50" and similar.
func dollarsToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimPrefix(s, "$")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(f * 100)), nil
}

func nullableStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseLocalDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// composeTime joins a date, an hh:mm (or hh) 12-hour clock time and an AM/PM
// marker: the hour is hour%12, plus 12 for PM. The result is UTC.
func composeTime(date, clock, ampm string, loc *time.Location) (time.Time, error) {
	d, err := parseLocalDate(date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	hh, mm, hasMinutes := strings.Cut(strings.TrimSpace(clock), ":")
	if hh == "" {
		hh = "0"
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 12 {
		return time.Time{}, fmt.Errorf("time must be hh:mm on a 12-hour clock")
	}
	minute := 0
	if hasMinutes {
		minute, err = strconv.Atoi(mm)
		if err != nil || minute < 0 || minute > 59 {
			return time.Time{}, fmt.Errorf("time must be hh:mm on a 12-hour clock")
		}
	}
	hour %= 12
	switch strings.ToUpper(strings.TrimSpace(ampm)) {
	case "PM":
		hour += 12
	case "AM", "":
	default:
		return time.Time{}, fmt.Errorf("AM/PM marker must be AM or PM")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location()).UTC(), nil
}
