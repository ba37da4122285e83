// Package globaltime pins all wall-clock reads to UTC.
package globaltime

import "time"

// UTC returns the current time in UTC.
func UTC() time.Time {
	return time.Now().UTC()
}
