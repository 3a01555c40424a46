package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/pipeline"
)

// createScanJSON is the JSON alternative to the multipart upload, used by
// clients that already hold the image as base64.
type createScanJSON struct {
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	Filename    string `json:"filename"`
	Engine      string `json:"engine,omitempty"`
	ImageBase64 string `json:"image_base64"`
}

// handleCreateScan accepts either multipart/form-data (field "image") or a
// JSON body with a base64 image, and runs the scan synchronously.
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	req, err := s.parseScanRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	scan, err := s.processor.ProcessScan(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, scan)
}

func (s *Server) parseScanRequest(r *http.Request) (pipeline.ScanRequest, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		return parseScanJSON(r)
	}
	return s.parseScanMultipart(r)
}

func parseScanJSON(r *http.Request) (pipeline.ScanRequest, error) {
	var body createScanJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return pipeline.ScanRequest{}, common.NewAppError("BAD_BODY", "invalid JSON body", common.ErrInvalidInput)
	}
	companyID, err := uuid.Parse(body.CompanyID)
	if err != nil {
		return pipeline.ScanRequest{}, common.NewAppError("BAD_COMPANY_ID", "company_id must be a UUID", common.ErrInvalidInput)
	}
	if body.Filename == "" {
		return pipeline.ScanRequest{}, common.NewAppError("MISSING_FILENAME", "filename is required", common.ErrInvalidInput)
	}
	imageBytes, err := base64.StdEncoding.DecodeString(body.ImageBase64)
	if err != nil || len(imageBytes) == 0 {
		return pipeline.ScanRequest{}, common.NewAppError("BAD_IMAGE", "image_base64 must be non-empty base64", common.ErrInvalidInput)
	}
	return pipeline.ScanRequest{
		CompanyID:   companyID,
		CompanyName: body.CompanyName,
		Filename:    body.Filename,
		ImageBytes:  imageBytes,
		Engine:      constants.OCREngine(body.Engine),
	}, nil
}

func (s *Server) parseScanMultipart(r *http.Request) (pipeline.ScanRequest, error) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return pipeline.ScanRequest{}, common.NewAppError("BAD_FORM", "invalid multipart form", common.ErrInvalidInput)
	}
	companyID, err := uuid.Parse(r.FormValue("company_id"))
	if err != nil {
		return pipeline.ScanRequest{}, common.NewAppError("BAD_COMPANY_ID", "company_id must be a UUID", common.ErrInvalidInput)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return pipeline.ScanRequest{}, common.NewAppError("MISSING_IMAGE", "image file is required", common.ErrInvalidInput)
	}
	defer file.Close()
	imageBytes, err := io.ReadAll(file)
	if err != nil {
		return pipeline.ScanRequest{}, common.NewAppError("BAD_IMAGE", "could not read image", common.ErrInvalidInput)
	}
	return pipeline.ScanRequest{
		CompanyID:   companyID,
		CompanyName: r.FormValue("company_name"),
		Filename:    header.Filename,
		ImageBytes:  imageBytes,
		Engine:      constants.OCREngine(r.FormValue("engine")),
	}, nil
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(r.URL.Query().Get("company_id"))
	if err != nil {
		writeDomainError(w, common.NewAppError("BAD_COMPANY_ID", "company_id must be a UUID", common.ErrInvalidInput))
		return
	}
	limit := queryInt(r, "limit", 50)

	scans, err := s.scans.ListByCompany(r.Context(), companyID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scans": scans,
		"count": len(scans),
	})
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, common.NewAppError("BAD_SCAN_ID", "scan id must be a UUID", common.ErrInvalidInput))
		return
	}
	scan, err := s.scans.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

// feedbackBody is the user's verdict on a matched scan.
type feedbackBody struct {
	Feedback   string `json:"feedback"`              // confirmed | rejected | corrected
	CustomerID string `json:"customer_id,omitempty"` // required for corrected
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	scanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, common.NewAppError("BAD_SCAN_ID", "scan id must be a UUID", common.ErrInvalidInput))
		return
	}
	var body feedbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDomainError(w, common.NewAppError("BAD_BODY", "invalid JSON body", common.ErrInvalidInput))
		return
	}

	verdict := pipeline.Verdict{ScanID: scanID, Feedback: body.Feedback}
	switch body.Feedback {
	case entity.FeedbackConfirmed, entity.FeedbackRejected:
	case entity.FeedbackCorrected:
		customerID, err := uuid.Parse(body.CustomerID)
		if err != nil {
			writeDomainError(w, common.NewAppError("BAD_CUSTOMER_ID", "customer_id must be a UUID for corrected feedback", common.ErrInvalidInput))
			return
		}
		verdict.CustomerID = &customerID
	default:
		writeDomainError(w, common.NewAppError("BAD_FEEDBACK",
			fmt.Sprintf("feedback must be one of confirmed, rejected, corrected; got %q", body.Feedback),
			common.ErrInvalidInput))
		return
	}

	scan, err := s.recorder.Record(r.Context(), verdict)
	if err != nil {
		// The verdict was applied but the training log write failed. The
		// scan's new status stands; surface it with a warning.
		if scan != nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"scan":       scan,
				"warning":    "feedback log write failed",
				"warning_ar": common.Localize(common.ErrFeedbackWrite),
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scan": scan})
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	scanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, common.NewAppError("BAD_SCAN_ID", "scan id must be a UUID", common.ErrInvalidInput))
		return
	}
	rows, err := s.feedback.ListByScan(r.Context(), scanID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": rows, "count": len(rows)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hist.Summarize())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(r.URL.Query().Get("company_id"))
	if err != nil {
		writeDomainError(w, common.NewAppError("BAD_COMPANY_ID", "company_id must be a UUID", common.ErrInvalidInput))
		return
	}
	limit := queryInt(r, "limit", 0)

	data, err := s.export.ExportScansXLSX(r.Context(), companyID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="scans.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
