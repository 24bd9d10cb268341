package dayrange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestResolveClientDay(t *testing.T) {
	r, degraded := Resolve("2025-03-10", intPtr(-120), 0) // UTC+2 client
	require.False(t, degraded)

	// Local midnight 2025-03-10 at UTC+2 is 2025-03-09T22:00Z.
	assert.Equal(t, time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, 24*time.Hour, r.End.Sub(r.Start))
}

func TestResolveDayOffset(t *testing.T) {
	today, _ := Resolve("2025-03-10", intPtr(0), 0)
	tomorrow, degraded := Resolve("2025-03-10", intPtr(0), 1)
	require.False(t, degraded)

	assert.Equal(t, today.Start.AddDate(0, 0, 1), tomorrow.Start)
	assert.Equal(t, today.End.AddDate(0, 0, 1), tomorrow.End)
}

func TestResolveFallbacks(t *testing.T) {
	cases := []struct {
		name string
		day  string
		off  *int
	}{
		{"empty day", "", intPtr(0)},
		{"garbage day", "not-a-date", intPtr(0)},
		{"partial day", "2025-03", intPtr(0)},
		{"nil offset", "2025-03-10", nil},
		{"offset too large", "2025-03-10", intPtr(1500)},
		{"offset too small", "2025-03-10", intPtr(-1500)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, degraded := Resolve(tc.day, tc.off, 0)
			assert.True(t, degraded)

			// Fallback is UTC midnight of the current day.
			now := time.Now().UTC()
			want := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			assert.Equal(t, want, r.Start)
			assert.Equal(t, 24*time.Hour, r.End.Sub(r.Start))
		})
	}
}

func TestResolveDayKeyRoundTrip(t *testing.T) {
	days := []string{"2025-01-01", "2025-06-15", "2024-02-29", "2025-12-31"}
	offsets := []int{-1440, -780, -120, 0, 60, 330, 780, 1440}

	for _, day := range days {
		for _, off := range offsets {
			r, degraded := Resolve(day, intPtr(off), 0)
			require.False(t, degraded, "day=%s off=%d", day, off)
			assert.Equal(t, day, DayKey(r.Start, off), "day=%s off=%d", day, off)
		}
	}
}

func TestDayKeyFrames(t *testing.T) {
	// 23:00Z on the 9th is already the 10th for a UTC+13 client (offset -780).
	instant := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-03-09", DayKey(instant, 0))
	assert.Equal(t, "2025-03-10", DayKey(instant, -780))
	// A UTC-11 client (offset +660) is still on the 9th.
	assert.Equal(t, "2025-03-09", DayKey(instant, 660))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "2025-03-10", Normalize("2025-03-10"))
	assert.Equal(t, "2025-03-10", Normalize("2025-03-10T14:25:00Z"))
	assert.Equal(t, "2025-03-10", Normalize("2025-03-10 00:00:00"))
	assert.Equal(t, "garbage", Normalize("garbage"))
}

func TestPrevDay(t *testing.T) {
	assert.Equal(t, "2025-03-09", PrevDay("2025-03-10"))
	assert.Equal(t, "bogus", PrevDay("bogus"))
}

func TestPrevDayMonthBoundary(t *testing.T) {
	assert.Equal(t, "2025-02-28", PrevDay("2025-03-01"))
	assert.Equal(t, "2024-02-29", PrevDay("2024-03-01"))
	assert.Equal(t, "2024-12-31", PrevDay("2025-01-01"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("2025-03-10"))
	assert.False(t, Valid("2025-3-10"))
	assert.False(t, Valid("2025-13-40"))
	assert.False(t, Valid(""))
}
