package sqlite

import "time"

func timeZero() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}
