package telemetry

import (
	"strings"
	"time"

	"github.com/kalcerwatch/kalcerwatch/internal/config"
)

// LabelFunc derives a chart label from a record timestamp.
type LabelFunc func(timestamp string) string

// LabelFor returns the LabelFunc for a configured label mode.
func LabelFor(mode string) LabelFunc {
	if mode == config.LabelModeStrict {
		return StrictLabel
	}
	return SubstringLabel
}

// SubstringLabel cuts "HH:MM" out of a timestamp by position.
//
// With a space: the second space-separated field, first 5 characters
// ("2025-12-09 22:54:10" → "22:54"). Without: characters [len-8, len-3),
// clamped at 0, which is "HH:MM" only for an exact "HH:MM:SS" input.
// Shorter inputs give shorter or empty labels.
func SubstringLabel(ts string) string {
	if strings.Contains(ts, " ") {
		parts := strings.SplitN(ts, " ", 3)
		return prefix(parts[1], 5)
	}
	r := []rune(ts)
	return string(r[clamp(len(r)-8):clamp(len(r)-3)])
}

// StrictLabel parses the clock part of ts (the text after the first space,
// or all of ts) as HH:MM:SS and formats it as HH:MM. Anything that does not
// parse gives "".
func StrictLabel(ts string) string {
	clock := ts
	if _, after, ok := strings.Cut(ts, " "); ok {
		clock = after
	}
	t, err := time.Parse(time.TimeOnly, clock)
	if err != nil {
		return ""
	}
	return t.Format("15:04")
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func clamp(i int) int {
	if i < 0 {
		return 0
	}
	return i
}
