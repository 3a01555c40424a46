package llm

import (
	"strings"

	"github.com/fleetify/invoice-scan/constants"
)

// BuildSystemPrompt composes the system message. Documents are Arabic-first
// (Qatar/Kuwait rental invoices), so the instructions lean on Arabic field
// labels while keeping the output keys English.
func BuildSystemPrompt(req ExtractRequest) string {
	parts := []string{
		"You are an invoice reader for a vehicle and property rental company in the Gulf region.",
		"Documents are usually in Arabic, sometimes English or mixed. Read Arabic right-to-left carefully, including handwritten numerals.",
		"Return ONLY JSON that matches the provided JSON Schema. Keys are English; values keep the document's original script.",
		"Extract: invoice_number, invoice_date (YYYY-MM-DD), customer_name (exactly as written, do not transliterate), contract_number (عقد / اتفاقية), car_number (رقم اللوحة / رقم السيارة, digits only when possible), total_amount (number, no currency symbol), payment_period (e.g. شهر يناير / January).",
		"Put every line of text you can read into raw_text, in reading order.",
		"Collect context_clues: car_numbers, months, amounts, agreement_numbers you see anywhere on the page.",
		"Never output null and never invent values. Omit any field you cannot read.",
	}
	if req.CompanyName != "" {
		parts = append(parts, "The document belongs to the company \""+req.CompanyName+"\"; customer_name is the OTHER party, never this company.")
	}
	switch req.Language {
	case constants.LanguageArabic:
		parts = append(parts, "The document is known to be Arabic.")
	case constants.LanguageEnglish:
		parts = append(parts, "The document is known to be English.")
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint. The image itself travels as an
// image_url content part next to this text.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	b.WriteString("Extract all invoice fields from the attached image.")
	if f := strings.TrimSpace(req.Filename); f != "" {
		b.WriteString("\nFilename: ")
		b.WriteString(f)
	}
	b.WriteString("\nSet language_detected to arabic, english, or mixed based on what you read.")
	return b.String()
}
