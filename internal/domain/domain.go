// Package domain defines the wellness record types, their seed data, form layouts and
// derived summaries.
package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the day/month/year format used for every stored date.
const DateLayout = "02/01/2006"

// Today formats now as a stored date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// LeadingNumber parses the optionally signed digit run at the start of s ("420 cal" -> 420).
// Leading whitespace is skipped; a string without leading digits yields 0.
func LeadingNumber(s string) int {
	s = strings.TrimLeft(s, " \t\n\r")
	start := 0
	if start < len(s) && (s[start] == '+' || s[start] == '-') {
		start++
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// withUnit renders a numeric form value in canonical form ("+300" -> "300", ".5" -> "0.5")
// followed by its unit, using 0 for blanks.
func withUnit(value, unit string) string {
	value = strings.TrimSpace(value)
	if f, ok := parseFloat(value); ok {
		value = formatFloat(f)
	} else if value == "" {
		value = "0"
	}
	return value + unit
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
