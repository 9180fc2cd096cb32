package etl

import (
	"fmt"
	"strings"
	"time"

	"github.com/BartekS5/totesys-etl/pkg/utils"
)

// QuarantineTable receives snapshots whose table name could not be used.
const QuarantineTable = "UnexpectedQueryErrors"

// LandingKey returns <table>/<YYYY>/<MM>/<DD>/<timestamp>.csv for a
// snapshot taken at now. Keys are unique only to the microsecond.
func LandingKey(table string, now time.Time) string {
	table = strings.TrimSpace(table)
	if table == "" {
		table = QuarantineTable
	}
	return fmt.Sprintf("%s/%s/%s.csv", table, now.Format("2006/01/02"), utils.FormatTimestamp(now, 'T'))
}

// ProcessedKey returns <dim>/<YYYY>/<MM>/<DD>/<dim>.parquet; one object
// per dimension per UTC day.
func ProcessedKey(dimension string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s.parquet", dimension, now.UTC().Format("2006/01/02"), dimension)
}

// TableFromKey returns the first path segment of a landing key.
func TableFromKey(key string) string {
	name, _, _ := strings.Cut(key, "/")
	return name
}
