package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-01-31", "2024-01-31T22:15:00Z", "2024-01-31 08:00:00"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
		assert.True(t, IsDay(got))
	}

	_, err := ParseDate("31/01/2024")
	assert.Error(t, err)
}

func TestDayUsesUTC(t *testing.T) {
	east := time.FixedZone("east", 10*60*60)
	local := time.Date(2024, 3, 1, 6, 0, 0, 0, east)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Day(local))
	assert.False(t, IsDay(local))
}

func TestTodayFollowsNow(t *testing.T) {
	saved := Now
	defer func() { Now = saved }()
	Now = func() time.Time { return time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC) }

	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), Today())
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), AddDays(Today(), 1))
}
