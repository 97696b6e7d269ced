package decay

import (
	"math"
	"time"
)

// Brightness model:
//   - exp(-days / 30), days since the node was last active
//   - Floor: 0.08 (a node never fades out completely and stays selectable)
//   - Never observed: 0.12
//   - Negative elapsed time (clock skew) counts as zero days
const (
	HalfLifeDays = 30.0
	Floor        = 0.08
	Ceiling      = 1.0
	Unobserved   = 0.12
)

// Brightness converts a last-active timestamp into a value in [Floor, Ceiling].
// A nil timestamp yields Unobserved.
func Brightness(last *time.Time, now time.Time) float64 {
	if last == nil {
		return Unobserved
	}
	days := now.Sub(*last).Hours() / 24
	if days < 0 {
		days = 0
	}
	return Clamp(math.Exp(-days/HalfLifeDays), Floor, Ceiling)
}

// Clamp bounds v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
