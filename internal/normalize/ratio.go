package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Ratio converts a raw share-ratio cell into a percentage in [0,100] rounded
// to 2 decimal places. Accepted shapes, in priority order:
//
//  1. fraction "A/B"     -> A/B x 100
//  2. percentage "P%"    -> P
//  3. bare number n      -> n x 100 when 0 < n <= 1, n when 1 < n <= 100
//
// Blank input, zero, a zero denominator, or anything outside these shapes
// yields nil: malformed ratios are treated as missing data rather than a hard
// failure so batch ingestion stays resilient. Zero is a business signal
// ("owns none of this component") and is never stored as a 0 ratio.
//
// A literal "1" parses as 100 under the fraction-of-one rule, which shadows a
// true "1%" input. That matches the legacy ingestion behavior and is kept for
// compatibility.
func Ratio(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 != nil || err2 != nil || d == 0 {
			return nil
		}
		return clampRatio(n / d * 100)
	}

	if prefix, ok := strings.CutSuffix(s, "%"); ok {
		p, err := strconv.ParseFloat(strings.TrimSpace(prefix), 64)
		if err != nil {
			return nil
		}
		return clampRatio(p)
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if n > 0 && n <= 1 {
		return clampRatio(n * 100)
	}
	return clampRatio(n)
}

// clampRatio rounds to 2 decimals and rejects values outside (0, 100].
func clampRatio(v float64) *float64 {
	if v <= 0 || v > 100 {
		return nil
	}
	r := math.Round(v*100) / 100
	return &r
}

// Number parses a plain numeric cell (area, valuation), returning nil for
// blank, zero, or malformed input. Thousands separators are tolerated.
func Number(raw string) *float64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n == 0 {
		return nil
	}
	return &n
}
