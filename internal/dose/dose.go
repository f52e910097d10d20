// Package dose normalizes TG-263 dose-specifier tokens into total dose
// in centigray plus an optional fraction count.
package dose

import (
	"strconv"
	"strings"
)

// Amount is the outcome of normalizing one dose-specifier token. A nil
// TotalCGy means the text was absent or not parseable as a dose; the raw
// text is always preserved so malformed specifiers can be reported
// verbatim. Callers must not assume the numeric fields are populated.
type Amount struct {
	Raw       string   `json:"raw"`
	TotalCGy  *float64 `json:"total_dose_cgy,omitempty"`
	Fractions *int     `json:"fractions,omitempty"`
}

// Normalize parses a dose-specifier string. Accepted forms are a plain
// centigray value (5040), a Gy value with unit suffix (50.4Gy), the p
// decimal-point substitute (50p4Gy), and any of those followed by
// x<fractions> where the numeric part is then dose per fraction
// (2000x3, 20Gyx3). Anything else, including relative dose tokens such
// as High or Mid01, is returned unparsed.
func Normalize(text string) Amount {
	out := Amount{Raw: text}
	if text == "" {
		return out
	}

	// 'p' stands in for the decimal point on systems that disallow periods.
	converted := strings.ReplaceAll(text, "p", ".")

	dosePart, fracPart, hasFractions := strings.Cut(converted, "x")
	var fractions int
	if hasFractions {
		n, err := strconv.Atoi(fracPart)
		if err != nil {
			return out
		}
		fractions = n
	}

	var value float64
	if trimmed, found := strings.CutSuffix(dosePart, "Gy"); found {
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return out
		}
		value = v * 100
	} else {
		v, err := strconv.ParseFloat(dosePart, 64)
		if err != nil {
			return out
		}
		value = v
	}

	total := value
	if hasFractions {
		total = value * float64(fractions)
		out.Fractions = &fractions
	}
	out.TotalCGy = &total
	return out
}
