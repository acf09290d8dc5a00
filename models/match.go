package models

import "sort"

// Matches reports whether a wagered number wins under this bet type
// against the draw result. Absent result categories never match, and an
// unknown bet type settles as a non-win rather than an error so legacy
// rows cannot block a draw.
func (t BetType) Matches(number string, r *DrawResult) bool {
	if r == nil {
		return false
	}

	switch t {
	case BetTypeThreeTop:
		return r.ThreeTop != nil && number == *r.ThreeTop
	case BetTypeThreeTod:
		return r.ThreeTop != nil && isPermutation(number, *r.ThreeTop)
	case BetTypeTwoTop:
		return r.TwoTop != nil && number == *r.TwoTop
	case BetTypeTwoBottom:
		return r.TwoBottom != nil && number == *r.TwoBottom
	case BetTypeRunTop:
		return containsNumber(r.RunTop, number)
	case BetTypeRunBottom:
		return containsNumber(r.RunBottom, number)
	default:
		return false
	}
}

// isPermutation reports whether a and b contain the same digits in any
// order, repeats included. Both sides must be exactly three digits.
func isPermutation(a, b string) bool {
	if len(a) != 3 || len(b) != 3 {
		return false
	}
	return sortDigits(a) == sortDigits(b)
}

func sortDigits(s string) string {
	digits := []byte(s)
	sort.Slice(digits, func(i, j int) bool { return digits[i] < digits[j] })
	return string(digits)
}

func containsNumber(set []string, number string) bool {
	for _, n := range set {
		if n == number {
			return true
		}
	}
	return false
}
