package domain

import (
	"strconv"
	"strings"
)

// ParseAmount parses a monetary amount such as "$1,234.50", "Rs. 500",
// "INR 1,00,000" or "750.00/-". Only the leading and trailing non-numeric
// runs (currency symbols, codes, suffixes) are dropped. The remaining core
// must be an optionally signed number using ',' as the thousands separator
// and at most one '.' as the decimal point; anything else, including
// comma-decimal forms like "1.100,00", is rejected.
func ParseAmount(raw string) (float64, bool) {
	core := trimNonNumeric(strings.TrimSpace(raw))
	if core == "" {
		return 0, false
	}

	neg := false
	if core[0] == '-' {
		neg = true
		core = core[1:]
	}

	intPart, frac, hasDot := strings.Cut(core, ".")
	if hasDot && (frac == "" || !allDigits(frac)) {
		return 0, false
	}
	digits, ok := joinGroups(intPart, hasDot)
	if !ok {
		return 0, false
	}

	num := digits
	if hasDot {
		num += "." + frac
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// trimNonNumeric drops the prefix up to the first digit and the suffix
// after the last digit. A '-' or a leading decimal point directly before the
// first digit is kept; a dot ending a currency abbreviation ("Rs.500") is not.
func trimNonNumeric(s string) string {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return ""
	}
	if start > 0 && s[start-1] == '.' && (start < 2 || !isLetter(s[start-2])) {
		start--
	}
	if start > 0 && s[start-1] == '-' {
		start--
	}
	end := strings.LastIndexFunc(s, isDigit)
	return s[start : end+1]
}

// joinGroups validates the integer part's thousands grouping and returns
// its digits. Both western (1,234,567) and Indian (12,34,567) grouping are
// accepted: the last group has three digits, inner groups two or three.
// An empty integer part is valid only before a decimal point (".5").
func joinGroups(intPart string, hasDot bool) (string, bool) {
	if intPart == "" {
		return "0", hasDot
	}
	groups := strings.Split(intPart, ",")
	for i, g := range groups {
		if g == "" || !allDigits(g) {
			return "", false
		}
		switch {
		case i == 0:
			if len(groups) > 1 && len(g) > 3 {
				return "", false
			}
		case i == len(groups)-1:
			if len(g) != 3 {
				return "", false
			}
		default:
			if len(g) != 2 && len(g) != 3 {
				return "", false
			}
		}
	}
	return strings.Join(groups, ""), true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
