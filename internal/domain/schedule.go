package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Operator-facing layouts for event dates and times.
const (
	DateLayout  = "01/02/2006"
	ClockLayout = "15:04"

	dateTimeLayout = DateLayout + " " + ClockLayout
)

var (
	datePattern      = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	timeRangePattern = regexp.MustCompile(`^(\d{2}:\d{2})-(\d{2}:\d{2})$`)
)

// FormatDate formats t as MM/DD/YYYY
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTimeRange formats start and end as HH:MM-HH:MM
func FormatTimeRange(start, end time.Time) string {
	return start.Format(ClockLayout) + "-" + end.Format(ClockLayout)
}

// ParseSchedule parses an operator date (MM/DD/YYYY) and time range
// (HH:MM-HH:MM, 24 hour) as wall-clock times in loc.
// Start must not be after end.
func ParseSchedule(date, timeRange string, loc *time.Location) (time.Time, time.Time, error) {
	date = strings.TrimSpace(date)
	timeRange = strings.TrimSpace(timeRange)

	if !datePattern.MatchString(date) {
		return time.Time{}, time.Time{}, Validation("date must look like MM/DD/YYYY")
	}
	m := timeRangePattern.FindStringSubmatch(timeRange)
	if m == nil {
		return time.Time{}, time.Time{}, Validation("time must look like HH:MM-HH:MM")
	}

	start, err := parseWallClock(date, m[1], loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseWallClock(date, m[2], loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, Validation("start time must not be after end time")
	}
	return start, end, nil
}

func parseWallClock(date, clock string, loc *time.Location) (time.Time, error) {
	raw := date + " " + clock
	t, err := time.ParseInLocation(dateTimeLayout, raw, loc)
	if err != nil {
		return time.Time{}, Validation(fmt.Sprintf("invalid date or time %q", raw))
	}
	// Wall-clock times skipped by a DST change are normalized by the time
	// package; reject them instead of storing a shifted time.
	if t.Format(dateTimeLayout) != raw {
		return time.Time{}, Validation(fmt.Sprintf("%s does not exist in %s", raw, loc))
	}
	return t, nil
}
