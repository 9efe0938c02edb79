package adl

import "strings"

var (
	smallNumerals = []string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	tensNumerals = []string{
		"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
	}
	scaleNumerals = []struct {
		value uint64
		name  string
	}{
		{1_000_000_000_000_000_000, "quintillion"},
		{1_000_000_000_000_000, "quadrillion"},
		{1_000_000_000_000, "trillion"},
		{1_000_000_000, "billion"},
		{1_000_000, "million"},
		{1_000, "thousand"},
	}
)

// spellNumber writes v out in English words, e.g. -21 is "minus twenty-one".
func spellNumber(v int64) string {
	if v < 0 {
		// Negate in unsigned space so the most negative value survives.
		return "minus " + spellUnsigned(uint64(-(v+1))+1)
	}
	return spellUnsigned(uint64(v))
}

func spellUnsigned(v uint64) string {
	if v < 20 {
		return smallNumerals[v]
	}
	var parts []string
	for _, sc := range scaleNumerals {
		if v >= sc.value {
			parts = append(parts, spellUnsigned(v/sc.value), sc.name)
			v %= sc.value
		}
	}
	if v >= 100 {
		parts = append(parts, smallNumerals[v/100], "hundred")
		v %= 100
	}
	switch {
	case v == 0:
	case v < 20:
		parts = append(parts, smallNumerals[v])
	case v%10 == 0:
		parts = append(parts, tensNumerals[v/10])
	default:
		parts = append(parts, tensNumerals[v/10]+"-"+smallNumerals[v%10])
	}
	return strings.Join(parts, " ")
}

// numeralIdent is the capitalized identifier form used in class names,
// e.g. 0 is "Zero" and -1 is "MinusOne".
func numeralIdent(v int64) string {
	return makeIdentTitle(spellNumber(v))
}
