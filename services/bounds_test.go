package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	start, end := DayBounds(time.Date(2025, 7, 5, 1, 0, 0, 0, time.UTC), loc)

	assert.Equal(t, time.Date(2025, 7, 5, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 7, 5, 23, 59, 59, 999999000, loc), end)
}

func TestDayBounds_DaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// clocks go forward on 2025-03-30
	start, end := DayBounds(time.Date(2025, 3, 30, 12, 0, 0, 0, loc), loc)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
	assert.Equal(t, 23*time.Hour-time.Microsecond, end.Sub(start))
}

func TestRangeBounds(t *testing.T) {
	first := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	last := time.Date(2025, 7, 3, 8, 0, 0, 0, time.UTC)

	start, end, err := RangeBounds(first, last, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 7, 3, 23, 59, 59, 999999000, time.UTC), end)

	_, _, err = RangeBounds(first, first, time.UTC)
	assert.NoError(t, err)

	_, _, err = RangeBounds(last, first, time.UTC)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		day     time.Time
		lastDay int
	}{
		{time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 31},
		{time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 28},
		{time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), 29},
		{time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), 30},
		{time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 31},
	}

	for _, tt := range tests {
		start, end := MonthBounds(tt.day, time.UTC)
		assert.Equal(t, time.Date(tt.day.Year(), tt.day.Month(), 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(tt.day.Year(), tt.day.Month(), tt.lastDay, 23, 59, 59, 999999000, time.UTC), end)
	}
}
