// Package export produces XLSX workbooks from persisted scans.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/repository"
)

// Service is a tiny façade over the scan store that produces XLSX bytes.
type Service struct {
	scans  repository.ScanRepository
	logger *slog.Logger
}

func NewService(scans repository.ScanRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{scans: scans, logger: logger}
}

// ExportScansXLSX returns a workbook with the company's most recent scans,
// one row per scan, newest first.
func (s *Service) ExportScansXLSX(ctx context.Context, companyID uuid.UUID, limit int) ([]byte, error) {
	start := time.Now()

	scans, err := s.scans.ListByCompany(ctx, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Scans"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIdx, _ := f.GetSheetIndex("Sheet1"); defIdx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Scanned At",
		"Filename",
		"Status",
		"Decision Tier",
		"Customer",
		"Car Number",
		"Contract",
		"Amount",
		"Confidence",
		"OCR Confidence",
		"Language",
		"Matched Customer",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, scan := range scans {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, scan.CreatedAt.Format("2006-01-02 15:04"))
		write(2, scan.Filename)
		write(3, string(scan.Status))
		write(4, string(scan.Tier))
		write(5, scan.Fields.CustomerName)
		write(6, scan.Fields.CarNumber)
		write(7, scan.Fields.ContractNumber)
		if scan.Fields.TotalAmount != nil {
			write(8, *scan.Fields.TotalAmount)
		}
		write(9, scan.Matching.TotalConfidence)
		write(10, float64(scan.Processing.OCRConfidence))
		write(11, string(scan.Processing.LanguageDetected))
		write(12, matchedName(scan))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.scans.ok",
		"company_id", companyID,
		"rows", len(scans),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func matchedName(scan entity.ScanResult) string {
	if scan.Matching.BestMatch == nil {
		return ""
	}
	return scan.Matching.BestMatch.Name
}
