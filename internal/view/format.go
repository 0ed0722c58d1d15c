// Package view turns backend payloads into the dashboard's view model.
// Renderers take data and return values for one region; they never read
// shared state.
package view

import (
	"fmt"
	"math"
	"time"

	"killstats/internal/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name of month (1-12), or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

func MonthLabel(p domain.Period) string {
	return "Killboard Month - " + MonthName(p.Month)
}

// FormatNumber rounds v and groups thousands with commas.
func FormatNumber(v float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", int64(math.Round(v)))
}

// FormatISK renders a value as "1,234,567 ISK".
func FormatISK(v float64) string {
	return FormatNumber(v) + " ISK"
}

// FormatCount renders "N Kills" or "N Deaths".
func FormatCount(n int64, loss bool) string {
	unit := "Kills"
	if loss {
		unit = "Deaths"
	}
	return fmt.Sprintf("%s %s", FormatNumber(float64(n)), unit)
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
