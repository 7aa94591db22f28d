// humansize.go -- print byte counts in human readable form
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

// Package humansize formats byte counts the way sstutil verify and
// sstinspect report table body sizes to a terminal.
package humansize

import "fmt"

// unit is one step of the binary byte-size ladder, largest first so
// String can pick the first one sz clears.
type unit struct {
	size   uint64
	suffix string
}

var units = []unit{
	{1 << 60, "EB"},
	{1 << 50, "PB"},
	{1 << 40, "TB"},
	{1 << 30, "GB"},
	{1 << 20, "MB"},
	{1 << 10, "kB"},
}

// String renders sz bytes as a short human-readable size, e.g. "4.2 MB".
// The fraction is the first two digits of the remainder, truncated, not
// rounded -- "1536 B" prints as "1.51 kB", not "1.5 kB".
func String(sz uint64) string {
	for _, u := range units {
		if sz < u.size {
			continue
		}
		whole, rem := sz/u.size, sz%u.size
		if rem == 0 {
			return fmt.Sprintf("%d %s", whole, u.suffix)
		}
		frac := fmt.Sprintf("%d", rem)
		return fmt.Sprintf("%d.%2.2s %s", whole, frac, u.suffix)
	}
	return fmt.Sprintf("%d B", sz)
}
