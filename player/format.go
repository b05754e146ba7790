package player

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as M:SS. Non-finite and negative values render
// as 0:00.
func FormatTime(t float64) string {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return "0:00"
	}
	m := int64(t / 60)
	s := int64(math.Mod(t, 60))
	return fmt.Sprintf("%d:%02d", m, s)
}
