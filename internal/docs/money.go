// Package docs renders invoices and booking ledgers.
package docs

import (
	"strconv"
	"strings"
)

// FormatMoney groups whole currency units in threes: 1234567 -> "1,234,567".
func FormatMoney(v int64) string {
	neg := v < 0
	s := strconv.FormatInt(v, 10)
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	n := len(s)
	for i := 0; i < n; i++ {
		b.WriteByte(s[i])
		if pos := n - i - 1; pos > 0 && pos%3 == 0 {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
