package ingest

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidTime = errors.New("invalid timestamp")

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// Digit-only layouts, keyed by length. Serials never reach eight digits.
var compactLayouts = map[int]string{
	8:  "20060102",
	12: "200601021504",
	14: "20060102150405",
}

// Layouts accepted for textual timestamps, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/1/2",
}

// ParseTime reads a timestamp cell. Excel serial numbers (1900 system) and
// textual layouts are accepted; values without an offset are taken in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTime
	}
	if loc == nil {
		loc = time.Local
	}

	if layout, ok := compactLayouts[len(s)]; ok && isDigits(s) {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, ErrInvalidTime
		}
		return t, nil
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if !(serial > 0 && serial <= maxExcelSerial) {
			return time.Time{}, ErrInvalidTime
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, ErrInvalidTime
		}
		// Serials carry wall-clock time with no zone.
		t = t.Round(time.Second)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTime
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
