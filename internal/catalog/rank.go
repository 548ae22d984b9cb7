package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Rank is an ordinal progression level. Higher ranks unlock more content.
// 10th keup (white belt) is rank 1, 1st keup is rank 10, 1st dan is rank 11.
type Rank int

const (
	// MinRank is 10th keup.
	MinRank Rank = 1
	// FirstDan is the first black belt rank.
	FirstDan Rank = 11
	// MaxRank is 9th dan.
	MaxRank Rank = 19
)

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool {
	return r >= MinRank && r <= MaxRank
}

// String returns the belt name, e.g. "9th_keup" or "1st_dan".
func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("rank(%d)", int(r))
	}
	if r < FirstDan {
		return ordinal(int(FirstDan-r)) + "_keup"
	}
	return ordinal(int(r-FirstDan)+1) + "_dan"
}

// ParseRank converts a belt name to a Rank. It accepts "9th_keup",
// "9th keup", "9th-kup" and "1st_dan" in any case, or a bare rank number.
func ParseRank(s string) (Rank, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return 0, fmt.Errorf("empty rank")
	}

	if n, err := strconv.Atoi(norm); err == nil {
		r := Rank(n)
		if !r.Valid() {
			return 0, fmt.Errorf("rank %d out of range [%d, %d]", n, MinRank, MaxRank)
		}
		return r, nil
	}

	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	num, suffix, ok := strings.Cut(norm, "_")
	if !ok {
		return 0, fmt.Errorf("unrecognized rank %q", s)
	}

	digits := strings.TrimRightFunc(num, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("unrecognized rank %q", s)
	}
	// The ordinal suffix is optional but must match the number: "1st", not "1th".
	if num != digits && num != ordinal(n) {
		return 0, fmt.Errorf("unrecognized rank %q", s)
	}

	var r Rank
	switch suffix {
	case "keup", "kup", "gup", "geup":
		if n > 10 {
			return 0, fmt.Errorf("keup grade %d out of range", n)
		}
		r = FirstDan - Rank(n)
	case "dan":
		r = FirstDan + Rank(n-1)
	default:
		return 0, fmt.Errorf("unrecognized rank %q", s)
	}

	if !r.Valid() {
		return 0, fmt.Errorf("rank %q out of range", s)
	}
	return r, nil
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 10 {
	case 1:
		if n%100 != 11 {
			suffix = "st"
		}
	case 2:
		if n%100 != 12 {
			suffix = "nd"
		}
	case 3:
		if n%100 != 13 {
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
