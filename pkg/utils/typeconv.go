package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BartekS5/totesys-etl/pkg/table"
)

// Layouts for the naive timestamps the source database compares against.
// Neither carries a zone.
const (
	SpaceLayout = "2006-01-02 15:04:05"
	ISOLayout   = "2006-01-02T15:04:05"
)

// FormatTimestamp renders t as "YYYY-MM-DD<sep>HH:MM:SS", adding six
// fractional digits only when the microsecond part is non-zero.
func FormatTimestamp(t time.Time, sep byte) string {
	layout := SpaceLayout
	if sep == 'T' {
		layout = ISOLayout
	}
	if t.Nanosecond()/1000 != 0 {
		layout += ".000000"
	}
	return t.Format(layout)
}

// ParseTimestamp accepts either separator and an optional fraction.
// The result is placed in loc since the text carries no zone.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range []string{SpaceLayout, ISOLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", s)
}

// ParseDate handles the date-ish values found in landing CSVs.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	formats := []string{
		"2006-01-02",
		SpaceLayout,
		ISOLayout,
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime: %s", s)
}

// ConvertFromSQL turns a value scanned from database/sql into a table
// value. Timestamps use the same rendering as the watermark so that
// extracted created_at values and the watermark stay comparable.
func ConvertFromSQL(val interface{}) table.Value {
	switch v := val.(type) {
	case nil:
		return table.Null()
	case string:
		return table.String(v)
	case []byte:
		return table.String(string(v))
	case int64:
		return table.Int(v)
	case int32:
		return table.Int(int64(v))
	case int:
		return table.Int(int64(v))
	case float64:
		return table.String(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		return table.String(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case bool:
		return table.String(strconv.FormatBool(v))
	case time.Time:
		return table.String(FormatTimestamp(v, ' '))
	default:
		return table.String(fmt.Sprintf("%v", v))
	}
}

// ConvertToInt reads a port number that the credentials secret may hold
// as a JSON number or as text.
func ConvertToInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	case []byte:
		return strconv.Atoi(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}
