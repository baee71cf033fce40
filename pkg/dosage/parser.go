// Package dosage parses free-text medication dosages such as "500mg",
// "10 mg/kg" or "2.5mg/kg/day" into structured values.
package dosage

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparsable is returned when no numeric dose can be extracted.
var ErrUnparsable = errors.New("unparsable dosage")

// ErrNegative is returned for negative dose values.
var ErrNegative = errors.New("negative dosage")

// ErrTooLarge is returned for dose values above MaxValue.
var ErrTooLarge = errors.New("dosage too large")

// MaxValue bounds parsed dose values so derived amounts stay finite.
const MaxValue = 1e9

var (
	// First numeric token, optional unit, up to two "/denominator" parts.
	dosePattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(mg|mcg|µg|ug|g|ml|iu|units?|kg)?(?:\s*/\s*(kg|day|dose|d))?(?:\s*/\s*(kg|day|dose|d))?`)

	unitAliases = map[string]string{
		"µg":    "mcg",
		"ug":    "mcg",
		"unit":  "units",
		"units": "units",
	}

	// Conversion factors into milligrams.
	massToMg = map[string]float64{
		"mg":  1,
		"g":   1000,
		"mcg": 0.001,
	}
)

// Dosage is a parsed dose expression.
type Dosage struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	PerKg  bool    `json:"per_kg"`
	PerDay bool    `json:"per_day"`
}

// ParseError describes why a dosage string could not be parsed.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse dosage %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse extracts the first numeric dose from text. Anything before the
// number is ignored, so "take 500 mg twice daily" yields 500 mg.
func Parse(text string) (Dosage, error) {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "" {
		return Dosage{}, &ParseError{Input: text, Reason: "empty input", Err: ErrUnparsable}
	}

	m := dosePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Dosage{}, &ParseError{Input: text, Reason: "no numeric dose found", Err: ErrUnparsable}
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Dosage{}, &ParseError{Input: text, Reason: err.Error(), Err: ErrUnparsable}
	}
	if value < 0 {
		return Dosage{}, &ParseError{Input: text, Reason: "dose must not be negative", Err: ErrNegative}
	}
	if value > MaxValue {
		return Dosage{}, &ParseError{Input: text, Reason: "dose exceeds plausible maximum", Err: ErrTooLarge}
	}

	d := Dosage{Value: value, Unit: normalizeUnit(m[2])}
	for _, denom := range m[3:] {
		switch denom {
		case "kg":
			d.PerKg = true
		case "day", "d":
			d.PerDay = true
		}
	}

	return d, nil
}

// MustParse is like Parse but panics on error. Intended for tables and tests.
func MustParse(text string) Dosage {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

func normalizeUnit(unit string) string {
	if alias, ok := unitAliases[unit]; ok {
		return alias
	}
	return unit
}

// String formats the dosage so that Parse(d.String()) == d.
func (d Dosage) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(d.Value, 'f', -1, 64))
	b.WriteString(d.Unit)
	if d.PerKg {
		b.WriteString("/kg")
	}
	if d.PerDay {
		b.WriteString("/day")
	}
	return b.String()
}

// IsMass reports whether the unit converts to milligrams.
func (d Dosage) IsMass() bool {
	_, ok := massToMg[d.Unit]
	return ok
}

// Milligrams returns the dose value converted to mg. A missing unit is
// treated as mg. The boolean is false for non-mass units (ml, iu, units).
func (d Dosage) Milligrams() (float64, bool) {
	if d.Unit == "" {
		return d.Value, true
	}
	factor, ok := massToMg[d.Unit]
	if !ok {
		return 0, false
	}
	return d.Value * factor, true
}

// Schedule is the number of administrations per day a frequency allows.
// Interval ranges such as "q4-6h" give Min=4 and Max=6.
type Schedule struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

var intervalPattern = regexp.MustCompile(`(?:^|[^a-z])(?:q|every)\s*(\d+(?:\.\d+)?)\s*(?:(?:-|to)\s*(\d+(?:\.\d+)?))?\s*(?:hours|hour|hrs|hr|h)`)

// ParseFrequency resolves a dosing frequency. Unknown or empty frequencies
// yield a single daily administration and false.
func ParseFrequency(frequency string) (Schedule, bool) {
	lower := strings.ToLower(strings.TrimSpace(frequency))
	once := Schedule{Min: 1, Max: 1}
	if lower == "" {
		return once, false
	}

	if m := intervalPattern.FindStringSubmatch(lower); m != nil {
		shortest, err := strconv.ParseFloat(m[1], 64)
		if err != nil || shortest <= 0 {
			return once, false
		}
		longest := shortest
		if m[2] != "" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil && v > 0 {
				longest = v
			}
		}
		if longest < shortest {
			shortest, longest = longest, shortest
		}
		return Schedule{
			Min: atLeastOnce(math.Floor(24 / longest)),
			Max: atLeastOnce(math.Ceil(24 / shortest)),
		}, true
	}

	f := strings.ReplaceAll(lower, " ", "")
	switch {
	case containsAny(f, "qid", "fourtimes", "4xdaily", "4times"):
		return Schedule{Min: 4, Max: 4}, true
	case containsAny(f, "tid", "threetimes", "3xdaily", "3times"):
		return Schedule{Min: 3, Max: 3}, true
	case containsAny(f, "bid", "twice", "2xdaily", "2times"):
		return Schedule{Min: 2, Max: 2}, true
	case containsAny(f, "daily", "once", "qd", "qam", "qpm", "qhs", "nightly"):
		return once, true
	default:
		return once, false
	}
}

func atLeastOnce(n float64) float64 {
	if n < 1 {
		return 1
	}
	return n
}

// DailyMultiplier maps a dosing frequency to the largest number of
// administrations per day it allows.
func DailyMultiplier(frequency string) float64 {
	s, _ := ParseFrequency(frequency)
	return s.Max
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
