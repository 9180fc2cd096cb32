package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/totesys-etl/pkg/table"
)

func TestFormatTimestamp(t *testing.T) {
	whole := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	micro := time.Date(2024, 1, 1, 0, 0, 0, 500000, time.UTC)
	nanoOnly := time.Date(2024, 1, 1, 0, 0, 0, 999, time.UTC)

	assert.Equal(t, "2024-01-01 00:00:00", FormatTimestamp(whole, ' '))
	assert.Equal(t, "2024-01-01T00:00:00", FormatTimestamp(whole, 'T'))
	assert.Equal(t, "2024-01-01 00:00:00.000500", FormatTimestamp(micro, ' '))
	assert.Equal(t, "2024-01-01 00:00:00", FormatTimestamp(nanoOnly, ' '))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 1, 12, 30, 0, 250000000, time.UTC)
	for _, in := range []string{"2024-01-01 12:30:00.25", "2024-01-01T12:30:00.250000", " 2024-01-01 12:30:00.250000\n"} {
		got, err := ParseTimestamp(in, nil)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseTimestamp("2024-01-01 12:30:00+02:00", time.UTC)
	assert.Error(t, err)
	_, err = ParseTimestamp("", time.UTC)
	assert.Error(t, err)
}

func TestConvertFromSQL(t *testing.T) {
	assert.True(t, ConvertFromSQL(nil).IsNull())
	assert.Equal(t, "abc", ConvertFromSQL([]byte("abc")).Text())
	assert.Equal(t, table.Int(42), ConvertFromSQL(int64(42)))
	assert.Equal(t, "12.5", ConvertFromSQL(12.5).Text())
	assert.Equal(t, "true", ConvertFromSQL(true).Text())
	assert.Equal(t, "2022-11-03 14:20:51.563000",
		ConvertFromSQL(time.Date(2022, 11, 3, 14, 20, 51, 563000000, time.UTC)).Text())
}

func TestConvertToInt(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{5432, 5432, false},
		{int64(7), 7, false},
		{float64(3), 3, false},
		{"5432", 5432, false},
		{"abc", 0, true},
		{nil, 0, true},
	}
	for _, tt := range tests {
		got, err := ConvertToInt(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
