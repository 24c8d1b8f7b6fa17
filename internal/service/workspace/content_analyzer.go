package workspace

import (
	"math"
	"strings"
	"time"

	"writeflow/internal/config"
)

// isCJK reports whether r is a CJK Unified Ideograph or Extension A rune.
// Each such rune counts as one word.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF)
}

// CountWords counts CJK ideographs one per rune plus whitespace-separated
// tokens in the remaining text.
func CountWords(text string) int {
	cjk := 0
	rest := strings.Map(func(r rune) rune {
		if isCJK(r) {
			cjk++
			return ' '
		}
		return r
	}, text)

	return cjk + len(strings.Fields(rest))
}

// Progress returns the percentage of target reached, capped at 100.
// A missing or non-positive target yields 0.
func Progress(wordCount, target int) int {
	if target <= 0 {
		return 0
	}
	pct := int(math.Round(float64(wordCount) / float64(target) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

const dayMillis = 86_400_000

// DaysLeft returns whole days until deadline, rounded up. Zero means due
// today; negative means overdue by that many days.
func DaysLeft(deadline, now time.Time) int {
	diff := deadline.UnixMilli() - now.UnixMilli()
	return int(math.Ceil(float64(diff) / dayMillis))
}

// ReadingMinutes estimates reading time, rounded up
func ReadingMinutes(wordCount int) int {
	if wordCount <= 0 {
		return 0
	}
	return (wordCount + config.WordsPerMinute - 1) / config.WordsPerMinute
}
