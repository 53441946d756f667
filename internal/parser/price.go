package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var errEmptyPrice = errors.New("empty price text")

// ParsePrice converts a localized price string into a number.
//
// The currency tokens in currencies are removed along with all whitespace.
// When both '.' and ',' occur, the later one is the decimal separator. A lone
// ',' is decimal when followed by one or two trailing digits. Lone '.'
// separators are thousands grouping when every group after the first has
// exactly three digits.
func ParsePrice(raw string, currencies []string) (float64, error) {
	s := raw
	for _, c := range currencies {
		if c != "" {
			s = strings.ReplaceAll(s, c, "")
		}
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, errEmptyPrice
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		frac := len(s) - lastComma - 1
		if strings.Count(s, ",") == 1 && frac >= 1 && frac <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if isDotGrouped(s) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("price %q: not a finite number", raw)
	}
	return v, nil
}

// isDotGrouped reports whether s looks like "1.299" or "12.345.678".
func isDotGrouped(s string) bool {
	groups := strings.Split(strings.TrimPrefix(s, "-"), ".")
	if len(groups) < 2 || len(groups[0]) < 1 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
