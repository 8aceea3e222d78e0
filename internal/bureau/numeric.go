package bureau

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoDigits is the ParseError of the pipeline: numeric cleaning found
// nothing parseable. Callers leave the field null and count it in
// diagnostics rather than failing the build.
var ErrNoDigits = errors.New("no digits in value")

// cleanNumeric strips currency symbols, grouping separators and
// whitespace, keeping only digits, at most one decimal point and a
// leading minus sign.
func cleanNumeric(raw string) (string, error) {
	var b strings.Builder
	seenDigit := false
	seenDot := false
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			seenDigit = true
		case r == '.' && !seenDot:
			b.WriteRune(r)
			seenDot = true
		case r == '-' && i == 0:
			b.WriteRune(r)
		}
	}
	if !seenDigit {
		return "", fmt.Errorf("%w: %q", ErrNoDigits, raw)
	}
	return b.String(), nil
}

// CleanFloat parses a noisy currency/number string ("₹53,27,046",
// "14,04,02,768.00") into a float64.
func CleanFloat(raw string) (float64, error) {
	s, err := cleanNumeric(raw)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", raw, err)
	}
	return f, nil
}

// CleanInt parses a noisy number string into an int, truncating any
// fractional part ("123.0" parses as 123).
func CleanInt(raw string) (int, error) {
	f, err := CleanFloat(raw)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
