package domain

import "time"

// Streak computes the number of consecutive days with at least one study
// session, counting back from today. days must hold distinct UTC midnights,
// most recent first (the order SessionDays returns). A streak survives a gap
// of one day (studied yesterday but not yet today); anything older breaks it.
func Streak(days []time.Time, now time.Time) int {
	if len(days) == 0 {
		return 0
	}

	today := now.UTC().Truncate(24 * time.Hour)
	latest := days[0].UTC().Truncate(24 * time.Hour)

	if latest.Before(today.AddDate(0, 0, -1)) {
		return 0
	}

	// Anchor the count on the most recent study day so a streak kept alive
	// yesterday still counts before today's first session.
	streak := 0
	expected := latest
	for _, d := range days {
		day := d.UTC().Truncate(24 * time.Hour)
		if !day.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}
