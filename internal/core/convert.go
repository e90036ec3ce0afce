package core

// convert.go provides the lenient conversions used to turn raw CSV cells into
// canonical values:
//   - Integers and decimals that coerce to zero instead of failing
//   - SCALAR_FACTOR vocabulary to multipliers
//   - REF_DATE text to a calendar date chosen by frequency
//
// A non-numeric VALUE is indistinguishable from a legitimate zero once converted.
// A scaled value outside the int64 range is reported rather than wrapped.

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// scalarMultipliers maps the SCALAR_FACTOR vocabulary (lowercased) to multipliers.
var scalarMultipliers = map[string]int64{
	"units":                 1,
	"tens":                  10,
	"hundreds":              100,
	"thousands":             1_000,
	"tens of thousands":     10_000,
	"hundreds of thousands": 100_000,
	"millions":              1_000_000,
	"tens of millions":      10_000_000,
	"hundreds of millions":  100_000_000,
	"billions":              1_000_000_000,
	"trillions":             1_000_000_000_000,
}

// Date layouts for REF_DATE by frequency.
const (
	layoutYearMonth = "2006-01"
	layoutYear      = "2006"
)

// ScalarMultiplier returns the multiplier for a SCALAR_FACTOR value.
// Matching ignores case and surrounding whitespace. Unrecognised text yields 1.
func ScalarMultiplier(scalar string) int64 {
	if m, ok := scalarMultipliers[strings.ToLower(strings.TrimSpace(scalar))]; ok {
		return m
	}
	return 1
}

// ParseLenientInt parses an optionally signed base-10 integer.
// Anything else, including decimals and empty cells, yields 0.
func ParseLenientInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseLenientDecimal parses a decimal number, yielding zero on failure.
func ParseLenientDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// ScaledInt parses raw as an integer and multiplies it by the scalar factor.
// It returns false when the product does not fit in an int64.
func ScaledInt(raw, scalar string) (int64, bool) {
	return scale(decimal.NewFromInt(ParseLenientInt(raw)), scalar)
}

// ScaledDecimal parses raw as a decimal, multiplies it by the scalar factor and
// truncates the product toward zero. It returns false when the truncated
// product does not fit in an int64.
func ScaledDecimal(raw, scalar string) (int64, bool) {
	return scale(ParseLenientDecimal(raw), scalar)
}

func scale(d decimal.Decimal, scalar string) (int64, bool) {
	p := d.Mul(decimal.NewFromInt(ScalarMultiplier(scalar))).Truncate(0)
	if p.GreaterThan(maxInt64) || p.LessThan(minInt64) {
		return 0, false
	}
	return p.IntPart(), true
}

// DeriveDate parses a REF_DATE value using the layout implied by freq.
// Monthly and quarterly tables use YYYY-MM, annual tables use YYYY; the result
// is the first day of the period in UTC. It returns false when freq has no
// layout or the text does not parse.
func DeriveDate(refDate string, freq Frequency) (time.Time, bool) {
	var layout string
	switch freq {
	case FrequencyMonthly, FrequencyQuarterly:
		layout = layoutYearMonth
	case FrequencyAnnually:
		layout = layoutYear
	default:
		return time.Time{}, false
	}
	return parseRefDate(refDate, layout)
}

// MonthlyDate parses a REF_DATE value as YYYY-MM regardless of frequency.
func MonthlyDate(refDate string) (time.Time, bool) {
	return parseRefDate(refDate, layoutYearMonth)
}

func parseRefDate(refDate, layout string) (time.Time, bool) {
	t, err := time.Parse(layout, strings.TrimSpace(refDate))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
