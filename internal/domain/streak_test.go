package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreak(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	day := func(daysAgo int) time.Time {
		return now.Truncate(24 * time.Hour).AddDate(0, 0, -daysAgo)
	}

	t.Run("no sessions", func(t *testing.T) {
		assert.Equal(t, 0, Streak(nil, now))
	})

	t.Run("studied today only", func(t *testing.T) {
		assert.Equal(t, 1, Streak([]time.Time{day(0)}, now))
	})

	t.Run("consecutive days ending today", func(t *testing.T) {
		days := []time.Time{day(0), day(1), day(2)}
		assert.Equal(t, 3, Streak(days, now))
	})

	t.Run("studied yesterday keeps streak alive", func(t *testing.T) {
		days := []time.Time{day(1), day(2), day(3)}
		assert.Equal(t, 3, Streak(days, now))
	})

	t.Run("latest older than yesterday breaks streak", func(t *testing.T) {
		days := []time.Time{day(2), day(3)}
		assert.Equal(t, 0, Streak(days, now))
	})

	t.Run("gap stops the count", func(t *testing.T) {
		days := []time.Time{day(0), day(1), day(3), day(4)}
		assert.Equal(t, 2, Streak(days, now))
	})
}
