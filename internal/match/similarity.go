package match

import "strings"

// NameScore compares an extracted name against a candidate name on a 0..100
// scale. Substring containment in either direction is the primary signal
// (invoices routinely carry only part of the registered name); Jaro-Winkler
// and token overlap strengthen near-misses below that tier.
func NameScore(extracted, candidate string) float64 {
	a := NormalizeName(extracted)
	b := NormalizeName(candidate)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := len([]rune(a)), len([]rune(b))
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		// 80 for a tiny fragment up to 95 when nearly the whole name
		return 80 + 15*float64(shorter)/float64(longer)
	}
	jw := JaroWinkler(a, b)
	tok := tokenOverlap(a, b)
	return (0.7*jw + 0.3*tok) * 80
}

// JaroWinkler returns string similarity in [0,1] with the standard 0.1
// prefix boost over up to 4 leading runes.
func JaroWinkler(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	j := jaro(ra, rb)
	prefix := 0
	for i := 0; i < len(ra) && i < len(rb) && i < 4; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}

func jaro(a, b []rune) float64 {
	la, lb := len(a), len(b)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	window := la
	if lb > window {
		window = lb
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, la)
	matchedB := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > lb {
			hi = lb
		}
		for j := lo; j < hi; j++ {
			if !matchedB[j] && a[i] == b[j] {
				matchedA[i] = true
				matchedB[j] = true
				matches++
				break
			}
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0.0
	k := 0
	for i := 0; i < la; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions += 0.5
		}
		k++
	}

	m := float64(matches)
	return (m/float64(la) + m/float64(lb) + (m-transpositions)/m) / 3
}

// tokenOverlap returns the share of whitespace tokens the two normalized
// names have in common, relative to the larger token set.
func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		set[t] = struct{}{}
	}
	common := 0
	for _, t := range tb {
		if _, ok := set[t]; ok {
			common++
		}
	}
	denom := len(ta)
	if len(tb) > denom {
		denom = len(tb)
	}
	return float64(common) / float64(denom)
}
