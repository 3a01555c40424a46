// Package match scores tenant-scoped customer candidates against the fields
// extracted from a scanned invoice and classifies the outcome into decision
// tiers.
package match

import (
	"strings"
	"unicode"
)

// arabicFold maps common Arabic letter variants onto one canonical form so
// that spelling variations of the same name compare equal (hamza forms of
// alef, taa marbuta vs haa, alef maqsura vs yaa).
var arabicFold = map[rune]rune{
	'أ': 'ا', 'إ': 'ا', 'آ': 'ا', 'ٱ': 'ا',
	'ة': 'ه',
	'ى': 'ي', 'ئ': 'ي',
	'ؤ': 'و',
}

// NormalizeName canonicalizes a person or company name for comparison:
// lowercase, Arabic letter folding, Arabic-Indic digits to ASCII, diacritics
// and punctuation removed, whitespace collapsed.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == 'ـ' || (r >= 0x064B && r <= 0x0652): // tatweel, harakat
			continue
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		default:
			if folded, ok := arabicFold[r]; ok {
				r = folded
			}
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToLower(r))
			} else {
				// whitespace, punctuation and symbols all split tokens
				b.WriteRune(' ')
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizePlate uppercases and strips spaces and separators, folding
// Arabic-Indic digits to ASCII.
func NormalizePlate(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// PlateVariations expands a plate number into the set of spellings under
// which it may appear on documents: as written, digits only, leading zeros
// stripped, and zero-padded to the common registry widths (6, 7, 8).
func PlateVariations(plate string) []string {
	base := NormalizePlate(plate)
	if base == "" {
		return nil
	}

	seen := map[string]struct{}{}
	var out []string
	add := func(v string) {
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(base)
	digits := digitsOf(base)
	add(digits)
	stripped := strings.TrimLeft(digits, "0")
	add(stripped)
	if stripped != "" {
		for _, width := range []int{6, 7, 8} {
			if len(stripped) < width {
				add(strings.Repeat("0", width-len(stripped)) + stripped)
			}
		}
	}
	return out
}

// PlatesEquivalent reports whether two plates share any variation.
func PlatesEquivalent(a, b string) bool {
	va := PlateVariations(a)
	if len(va) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(va))
	for _, v := range va {
		set[v] = struct{}{}
	}
	for _, v := range PlateVariations(b) {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
