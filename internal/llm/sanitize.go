package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
)

// NormalizeAndSanitizeJSON repairs the model's almost-right output so the
// strict schema can still accept it:
//   - renames known synonyms (client_name -> customer_name, plate_number ->
//     car_number, agreement_number -> contract_number, amount/total ->
//     total_amount)
//   - drops null and empty-string optionals
//   - coerces string amounts ("1,500.00") to numbers
//   - removes unknown keys (additionalProperties = false friendliness)
//   - normalizes context_clues into string arrays
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(stripCodeFences(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	renamed("client_name", "customer_name")
	renamed("customer", "customer_name")
	renamed("plate_number", "car_number")
	renamed("vehicle_number", "car_number")
	renamed("agreement_number", "contract_number")
	renamed("amount", "total_amount")
	renamed("total", "total_amount")
	renamed("language", "language_detected")

	// total_amount must be a number; the model often emits "1,500.00 QAR".
	if v, ok := m["total_amount"]; ok {
		switch t := v.(type) {
		case float64:
			// already fine
		case string:
			s := strings.TrimSpace(t)
			s = strings.ReplaceAll(s, ",", "")
			s = strings.TrimFunc(s, func(r rune) bool { return r != '.' && r != '-' && (r < '0' || r > '9') })
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				m["total_amount"] = f
			} else {
				delete(m, "total_amount")
				dropped = append(dropped, "total_amount(unparsable)")
			}
		case nil:
			delete(m, "total_amount")
			dropped = append(dropped, "total_amount(null)")
		default:
			delete(m, "total_amount")
			dropped = append(dropped, "total_amount(type)")
		}
	}

	if v, ok := m["language_detected"].(string); ok {
		lang := strings.ToLower(strings.TrimSpace(v))
		switch lang {
		case "arabic", "english", "mixed":
			m["language_detected"] = lang
		case "ar":
			m["language_detected"] = "arabic"
		case "en":
			m["language_detected"] = "english"
		default:
			delete(m, "language_detected")
			dropped = append(dropped, "language_detected(unknown)")
		}
	}

	if v, ok := m["context_clues"]; ok {
		clean, ok2 := sanitizeClues(v)
		if ok2 {
			m["context_clues"] = clean
		} else {
			delete(m, "context_clues")
			dropped = append(dropped, "context_clues(shape)")
		}
	}

	allowed := map[string]struct{}{
		"invoice_number": {}, "invoice_date": {}, "customer_name": {},
		"contract_number": {}, "car_number": {}, "total_amount": {},
		"payment_period": {}, "notes": {}, "language_detected": {},
		"raw_text": {}, "context_clues": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	// drop nulls and blank strings; trim the rest
	for k, v := range maps.Clone(m) {
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// sanitizeClues coerces a context_clues value into the four known string
// arrays, discarding anything that is not a string.
func sanitizeClues(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := map[string]any{}
	for _, key := range []string{"car_numbers", "months", "amounts", "agreement_numbers"} {
		raw, present := obj[key]
		if !present {
			continue
		}
		arr, isArr := raw.([]any)
		if !isArr {
			continue
		}
		items := make([]any, 0, len(arr))
		for _, it := range arr {
			if s, isStr := it.(string); isStr && strings.TrimSpace(s) != "" {
				items = append(items, strings.TrimSpace(s))
			}
		}
		out[key] = items
	}
	return out, true
}

// stripCodeFences unwraps ```json ... ``` blocks some models insist on.
func stripCodeFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
