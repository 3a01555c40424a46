package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fleetify/invoice-scan/internal/common"
)

// errorResponse is the uniform error body. MessageAr is the localized
// string the Arabic-first UI displays verbatim.
type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	MessageAr string `json:"message_ar"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   err.Error(),
		MessageAr: common.Localize(err),
	})
}

// writeDomainError maps the pipeline error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotImage):
		writeError(w, http.StatusUnsupportedMediaType, "not_image", err)
	case errors.Is(err, common.ErrNoDataExtracted):
		writeError(w, http.StatusUnprocessableEntity, "no_data_extracted", err)
	case errors.Is(err, common.ErrExtractionTimeout):
		writeError(w, http.StatusGatewayTimeout, "extraction_timeout", err)
	case errors.Is(err, common.ErrExtractionFailed):
		writeError(w, http.StatusBadGateway, "extraction_failed", err)
	case errors.Is(err, common.ErrScanStateConflict):
		writeError(w, http.StatusConflict, "scan_state_conflict", err)
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, common.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
