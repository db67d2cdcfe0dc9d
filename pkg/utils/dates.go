package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month converts an abbreviated French month name.
func Month(s string) (time.Month, bool) {
	switch {
	case strings.HasPrefix(s, "Ja"):
		return time.January, true
	case strings.HasPrefix(s, "F"):
		return time.February, true
	case strings.HasPrefix(s, "Mar"):
		return time.March, true
	case strings.HasPrefix(s, "Av"):
		return time.April, true
	case strings.HasPrefix(s, "Mai"):
		return time.May, true
	case strings.HasPrefix(s, "Juin"):
		return time.June, true
	case strings.HasPrefix(s, "Juil"):
		return time.July, true
	case strings.HasPrefix(s, "Ao"):
		return time.August, true
	case strings.HasPrefix(s, "S"):
		return time.September, true
	case strings.HasPrefix(s, "O"):
		return time.October, true
	case strings.HasPrefix(s, "N"):
		return time.November, true
	case strings.HasPrefix(s, "D"):
		return time.December, true
	}
	return 0, false
}

func isToday(s string) bool {
	s = strings.ReplaceAll(s, "’", "'")
	return strings.EqualFold(s, "Aujourd'hui")
}

func parseDay(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case isToday(s):
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case strings.EqualFold(s, "Hier"):
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 {
		d, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		y, err3 := strconv.Atoi(parts[2])
		if err1 == nil && err2 == nil && err3 == nil {
			return time.Date(y, time.Month(m), d, 0, 0, 0, 0, now.Location()), nil
		}
	}

	// "Jeu 14 Fév 2013"; the weekday is optional
	fields := strings.Fields(s)
	if len(fields) == 3 {
		fields = append([]string{""}, fields...)
	}
	if len(fields) != 4 {
		return time.Time{}, fmt.Errorf("unknown date %q", s)
	}
	d, err := strconv.Atoi(fields[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown date %q", s)
	}
	m, ok := Month(fields[2])
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month in %q", s)
	}
	y, err := strconv.Atoi(fields[3])
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown date %q", s)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
}

// ParseDate reads the dates printed by Forumactif, such as
// "Jeu 14 Fév 2013 - 15:34", "Hier - 08:02" or "14/02/2013", relative to now.
// It returns a unix timestamp.
func ParseDate(s string, now time.Time) (int64, error) {
	day, clock, hasClock := strings.Cut(strings.TrimSpace(s), " - ")
	if !hasClock {
		day, clock, hasClock = strings.Cut(strings.TrimSpace(s), " à ")
	}
	t, err := parseDay(day, now)
	if err != nil {
		return 0, err
	}
	if hasClock {
		h, m, ok := strings.Cut(strings.TrimSpace(clock), ":")
		if !ok {
			return 0, fmt.Errorf("unknown time in %q", s)
		}
		hours, err1 := strconv.Atoi(h)
		minutes, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("unknown time in %q", s)
		}
		t = t.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)
	}
	return t.Unix(), nil
}
