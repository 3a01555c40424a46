package constants

// ScanStatus is the canonical lifecycle status for rows in invoice_scans.
type ScanStatus string

// Stable values (store these exact strings in DB).
// created -> extracting -> matched -> confirmed | rejected.
// A scan that fails before matching ends in FAILED; confirmed and rejected
// are terminal and mutually exclusive.
const (
	ScanStatusCreated    ScanStatus = "CREATED"
	ScanStatusExtracting ScanStatus = "EXTRACTING"
	ScanStatusMatched    ScanStatus = "MATCHED"
	ScanStatusConfirmed  ScanStatus = "CONFIRMED"
	ScanStatusRejected   ScanStatus = "REJECTED"
	ScanStatusFailed     ScanStatus = "FAILED"
)

// CanTransition reports whether a scan may move from to next.
func CanTransition(from, to ScanStatus) bool {
	switch from {
	case ScanStatusCreated:
		return to == ScanStatusExtracting || to == ScanStatusFailed
	case ScanStatusExtracting:
		return to == ScanStatusMatched || to == ScanStatusFailed
	case ScanStatusMatched:
		return to == ScanStatusConfirmed || to == ScanStatusRejected
	default:
		// CONFIRMED, REJECTED and FAILED are terminal.
		return false
	}
}
