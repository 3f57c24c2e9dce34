package services

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidMonth = errors.New("invalid month")

func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// TodayKey is the YYYY-MM-DD key of now in the patient's calendar.
func TodayKey(now time.Time, location *time.Location) string {
	return DateAtLocation(now, location).Format(recordDateLayout)
}

// ParseMonth parses YYYY-MM into the first day of that month. A blank value
// means the current month.
func ParseMonth(raw string, now time.Time, location *time.Location) (time.Time, error) {
	if location == nil {
		location = time.UTC
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		today := DateAtLocation(now, location)
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, location), nil
	}
	parsed, err := time.ParseInLocation("2006-01", value, location)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return parsed, nil
}

func trimLower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
