package domain

import "time"

// WeekParity maps a date onto the biweekly timetable: 1 for odd ISO-8601
// week numbers, 2 for even. The university's "first/second week" convention
// follows the ISO calendar week, so month boundaries do not matter.
func WeekParity(t time.Time) int {
	_, week := t.ISOWeek()
	if week%2 == 1 {
		return 1
	}
	return 2
}
