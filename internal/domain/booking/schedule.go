package booking

import (
	"strings"
	"time"
)

var scheduleLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02 3:04PM",
}

// ParseSchedule combines a booking's stored date and time strings into one
// UTC instant. Accepts 24-hour times and 12-hour times with AM/PM markers,
// with or without a space before the marker.
func ParseSchedule(date, clock string) (time.Time, error) {
	combined := date + " " + strings.ToUpper(strings.TrimSpace(clock))

	var lastErr error
	for _, layout := range scheduleLayouts {
		t, err := time.Parse(layout, combined)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
