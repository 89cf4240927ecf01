package core

import (
	"fmt"
	"strconv"
	"time"
)

// MonthKey formats year and month as the YYYY-MM grouping key.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseMonthKey splits a YYYY-MM key.
func ParseMonthKey(key string) (year, month int, err error) {
	if len(key) != 7 || key[4] != '-' {
		return 0, 0, ErrInvalidMonth
	}
	year, err = strconv.Atoi(key[:4])
	if err != nil {
		return 0, 0, ErrInvalidMonth
	}
	month, err = strconv.Atoi(key[5:])
	if err != nil || !ValidMonth(month) {
		return 0, 0, ErrInvalidMonth
	}
	return year, month, nil
}

// MonthBounds returns the half-open interval [start, end) covering the month.
func MonthBounds(year, month int) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// InMonth reports whether d falls in [month_start, next_month_start).
func (d Date) InMonth(year, month int) bool {
	if d.IsZero() {
		return false
	}
	start, end := MonthBounds(year, month)
	return !d.Before(start) && d.Before(end)
}

// PrevMonth returns the month preceding year/month.
func PrevMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// NextMonth returns the month following year/month.
func NextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}

// AddMonths moves d forward by n months keeping the day of month.
// When the target month is shorter the last day of that month is used,
// so Jan 31 + 1 month is Feb 28 (or 29).
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(first.Year(), int(first.Month()), day)
}
