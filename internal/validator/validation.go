package validator

import (
	"errors"
	"strings"
	"time"
)

func ValidateDestination(s string) (string, error) {
	d := strings.TrimSpace(strings.ToLower(s))
	if len(d) < 2 {
		return "", errors.New("invalid destination")
	}
	return d, nil
}

func ValidateDate(dateStr string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, errors.New("invalid date, expected YYYY-MM-DD")
	}
	return t, nil
}
