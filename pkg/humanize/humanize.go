// Package humanize renders calculator metrics for people: durations in
// years or hours as short phrases, and large counts or amounts of money
// with K/M/B suffixes.
package humanize

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/d-led/iiwsit/pkg/units"
)

// Never is shown for a break-even that is never reached.
const Never = "Never"

// Currency prefixes formatted amounts. The calculator is currency-agnostic.
const Currency = "💰"

// Unit lengths in milliseconds. Years are calendar-averaged (365.25 days)
// and months are a twelfth of that.
const (
	msPerSecond = 1000.0
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
	msPerWeek   = 7 * msPerDay
	msPerYear   = units.HumanDaysPerYear * msPerDay
	msPerMonth  = msPerYear / 12
)

type durationUnit struct {
	ms     float64
	short  string
	single string
	plural string
}

var (
	year   = durationUnit{msPerYear, "y", "year", "years"}
	month  = durationUnit{msPerMonth, "mo", "month", "months"}
	week   = durationUnit{msPerWeek, "w", "week", "weeks"}
	day    = durationUnit{msPerDay, "d", "day", "days"}
	hour   = durationUnit{msPerHour, "h", "hour", "hours"}
	minute = durationUnit{msPerMinute, "m", "minute", "minutes"}
	second = durationUnit{msPerSecond, "s", "second", "seconds"}
)

// calendar is the unit set for long spans, rendered in short form.
var calendar = []durationUnit{year, month, week, day, hour}

// Years renders a duration given in years, e.g. "1 y 6 mo" or
// "8 hours, 46 minutes" for spans under a day. Non-finite input is Never.
func Years(y float64) string {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return Never
	}
	ms := y * msPerYear
	if y < 1.0/units.DaysPerYear {
		return long(ms, day, hour, minute)
	}
	return short(ms, calendar...)
}

// YearsString is Years for a formatted metric, which may hold the "∞"
// sentinel or be unparseable.
func YearsString(s string) string {
	switch s {
	case "∞", "Infinity", "+Inf":
		return Never
	}
	y, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Never
	}
	return Years(y)
}

// Hours renders a duration given in hours, choosing finer units for
// shorter spans. Non-finite input renders as "0 hours".
func Hours(h float64) string {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return "0 hours"
	}
	ms := h * msPerHour
	switch {
	case h < 1:
		return long(ms, hour, minute, second)
	case h < 24:
		return long(ms, hour, minute)
	case h < 24*30:
		return long(ms, day, hour)
	default:
		return short(ms, calendar...)
	}
}

// Number formats n with thousands separators, switching to one decimal and
// a K, M or B suffix from ten thousand up. NaN renders as "0".
func Number(n float64, decimals int) string {
	if math.IsNaN(n) {
		return "0"
	}
	if s, ok := abbreviate(n); ok {
		return s
	}
	return commafy(strconv.FormatFloat(n, 'f', decimals, 64))
}

// Money is Number with the currency symbol, sign first: "-💰 1,234.56".
func Money(n float64, decimals int) string {
	if math.IsNaN(n) {
		return Currency + " 0.00"
	}
	sign := ""
	if n < 0 {
		sign = "-"
	}
	abs := math.Abs(n)
	if s, ok := abbreviate(abs); ok {
		return sign + Currency + " " + s
	}
	return sign + Currency + " " + commafy(strconv.FormatFloat(abs, 'f', decimals, 64))
}

func abbreviate(n float64) (string, bool) {
	abs := math.Abs(n)
	switch {
	case abs >= 1e9:
		return strconv.FormatFloat(n/1e9, 'f', 1, 64) + "B", true
	case abs >= 1e6:
		return strconv.FormatFloat(n/1e6, 'f', 1, 64) + "M", true
	case abs >= 1e4:
		return strconv.FormatFloat(n/1e3, 'f', 1, 64) + "K", true
	default:
		return "", false
	}
}

// commafy inserts thousands separators into the integer part of a decimal string.
func commafy(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	i, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + s
	}
	out := sign + humanize.Comma(i)
	if hasFrac {
		out += "." + frac
	}
	return out
}

// piece is one unit's share of a split duration.
type piece struct {
	unit  durationUnit
	count float64
}

// split breaks ms into counts of the given units, largest first, keeping at
// most two non-zero units. Counts are rounded, and a unit that rounds to a
// whole multiple of the next larger one carries into it.
func split(ms float64, us []durationUnit) []piece {
	const largest = 2

	ms = math.Abs(ms)
	pieces := make([]piece, len(us))
	remaining := ms
	for i, u := range us {
		count := remaining / u.ms
		if i < len(us)-1 {
			count = math.Floor(count)
		}
		pieces[i] = piece{unit: u, count: count}
		remaining -= count * u.ms
	}

	first := 0
	for i, p := range pieces {
		if p.count != 0 {
			first = i
			break
		}
	}

	for i := len(pieces) - 1; i >= 0; i-- {
		pieces[i].count = math.Floor(pieces[i].count + 0.5)
		if i == 0 {
			break
		}
		ratio := pieces[i-1].unit.ms / pieces[i].unit.ms
		if math.Mod(pieces[i].count, ratio) == 0 || largest-1 < i-first {
			pieces[i-1].count += pieces[i].count / ratio
			pieces[i].count = 0
		}
	}

	var out []piece
	for _, p := range pieces {
		if p.count != 0 {
			out = append(out, p)
		}
		if len(out) == largest {
			break
		}
	}
	return out
}

func formatCount(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// long renders with full unit names: "2 days, 3 hours".
func long(ms float64, us ...durationUnit) string {
	pieces := split(ms, us)
	if len(pieces) == 0 {
		return "0 " + us[len(us)-1].plural
	}
	parts := make([]string, len(pieces))
	for i, p := range pieces {
		name := p.unit.plural
		if p.count == 1 {
			name = p.unit.single
		}
		parts[i] = formatCount(p.count) + " " + name
	}
	return strings.Join(parts, ", ")
}

// short renders with abbreviated unit names: "1 y 6 mo".
func short(ms float64, us ...durationUnit) string {
	pieces := split(ms, us)
	if len(pieces) == 0 {
		return "0 " + us[len(us)-1].short
	}
	parts := make([]string, len(pieces))
	for i, p := range pieces {
		parts[i] = formatCount(p.count) + " " + p.unit.short
	}
	return strings.Join(parts, " ")
}
