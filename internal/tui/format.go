package tui

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer is the locale-aware message printer for number formatting.
// Uses English locale for consistent thousand separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatCount formats an integer with thousand separators.
// Example: FormatCount(18248) returns "18,248".
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent formats a 0-100 percentage with the given number of decimals.
// Example: FormatPercent(66.67, 1) returns "66.7%".
func FormatPercent(p float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	format := fmt.Sprintf("%%.%df%%%%", precision)
	return printer.Sprintf(format, p)
}

// FormatDuration rounds d for display: milliseconds below one second,
// tenths of a second above.
func FormatDuration(d time.Duration) string {
	return roundDuration(d).String()
}

func roundDuration(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(100 * time.Millisecond)
}
