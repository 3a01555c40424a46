// Package keyinfo scans raw OCR text for corroborating tokens: car plate
// numbers, month references, monetary amounts, and agreement numbers. It is
// an independent cross-check for the structured extraction, which may
// hallucinate or omit fields.
package keyinfo

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/entity"
)

var (
	// Plate formats seen on Qatari/Kuwaiti documents: bare digit runs,
	// digit-letter combos with dashes, and Arabic-labeled numbers.
	reCarDashed = regexp.MustCompile(`\b(?:\d{1,3}-[A-Za-z]{1,3}-?\d{0,5}|[A-Za-z]{1,3}-\d{3,6})\b`)
	reCarDigits = regexp.MustCompile(`\b\d{4,8}\b`)

	// Amounts: 1,234.56 / 1234.500 / bare integers next to currency words.
	reAmount       = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+(?:\.\d{1,3})?\b|\b\d+\.\d{1,3}\b`)
	reCurrencyNear = regexp.MustCompile(`(?i)(?:QAR|QR|KWD|KD|ريال|دينار|د\.ك|ر\.ق)\s*(\d+(?:[.,]\d{1,3})?)|(\d+(?:[.,]\d{1,3})?)\s*(?:QAR|QR|KWD|KD|ريال|دينار|د\.ك|ر\.ق)`)

	// Agreement/contract references: LTO-2024-001, AGR123, C-00045 and the
	// Arabic "عقد رقم 123" form.
	reAgreementRef    = regexp.MustCompile(`\b(?:LTO|AGR|CNT|CTR|C)[-/]?\d{2,8}(?:[-/]\d{1,6})*\b`)
	reAgreementLabeld = regexp.MustCompile(`(?:عقد|اتفاقية|agreement|contract)\s*(?:رقم|no\.?|number|#)?\s*[:#]?\s*([A-Za-z]{0,3}[-/]?\d{2,10})`)
)

var englishMonths = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var arabicMonths = []string{
	"يناير", "فبراير", "مارس", "أبريل", "ابريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "اغسطس", "سبتمبر", "أكتوبر", "اكتوبر", "نوفمبر", "ديسمبر",
}

// Extract pulls candidate tokens out of raw text. Empty or garbage input
// yields empty collections, never an error.
func Extract(rawText string) entity.ContextClues {
	clues := entity.ContextClues{
		CarNumbers:       []string{},
		Months:           []string{},
		Amounts:          []string{},
		AgreementNumbers: []string{},
	}
	if strings.TrimSpace(rawText) == "" {
		return clues
	}

	seen := map[*[]string]map[string]struct{}{}
	add := func(dst *[]string, v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if seen[dst] == nil {
			seen[dst] = map[string]struct{}{}
		}
		key := strings.ToLower(v)
		if _, dup := seen[dst][key]; dup {
			return
		}
		seen[dst][key] = struct{}{}
		*dst = append(*dst, v)
	}

	// Agreement refs first so their digit runs are not re-claimed as plates.
	var claimed [][]int
	for _, span := range reAgreementRef.FindAllStringIndex(rawText, -1) {
		add(&clues.AgreementNumbers, rawText[span[0]:span[1]])
		claimed = append(claimed, span)
	}
	for _, m := range reAgreementLabeld.FindAllStringSubmatchIndex(rawText, -1) {
		if m[2] >= 0 {
			add(&clues.AgreementNumbers, rawText[m[2]:m[3]])
			claimed = append(claimed, []int{m[0], m[1]})
		}
	}

	for _, m := range reCarDashed.FindAllString(rawText, -1) {
		add(&clues.CarNumbers, m)
	}
	for _, span := range reCarDigits.FindAllStringIndex(rawText, -1) {
		if overlaps(span, claimed) {
			continue
		}
		add(&clues.CarNumbers, rawText[span[0]:span[1]])
	}

	lower := strings.ToLower(rawText)
	for _, month := range englishMonths {
		if strings.Contains(lower, month) {
			add(&clues.Months, month)
		}
	}
	for _, month := range arabicMonths {
		if strings.Contains(rawText, month) {
			add(&clues.Months, month)
		}
	}

	for _, m := range reAmount.FindAllString(rawText, -1) {
		add(&clues.Amounts, m)
	}
	for _, m := range reCurrencyNear.FindAllStringSubmatch(rawText, -1) {
		for _, g := range m[1:] {
			if g != "" {
				add(&clues.Amounts, g)
			}
		}
	}

	return clues
}

// DetectLanguage classifies raw text as arabic, english, or mixed based on
// script composition. Empty or scriptless input defaults to english.
func DetectLanguage(rawText string) constants.DetectedLanguage {
	var arabic, latin int
	for _, r := range rawText {
		switch {
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case r < 128 && unicode.IsLetter(r):
			latin++
		}
	}
	switch {
	case arabic == 0 && latin == 0:
		return constants.LanguageEnglish
	case latin == 0 || arabic >= 5*latin:
		return constants.LanguageArabic
	case arabic == 0 || latin >= 5*arabic:
		return constants.LanguageEnglish
	default:
		return constants.LanguageMixed
	}
}

func overlaps(span []int, claimed [][]int) bool {
	for _, c := range claimed {
		if span[0] < c[1] && span[1] > c[0] {
			return true
		}
	}
	return false
}
