package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/entity"
)

// fakeScanRepo serves a fixed scan list.
type fakeScanRepo struct {
	scans []entity.ScanResult
}

func (f *fakeScanRepo) Insert(context.Context, *entity.ScanResult) error { return nil }
func (f *fakeScanRepo) Get(context.Context, uuid.UUID) (*entity.ScanResult, error) {
	return nil, nil
}
func (f *fakeScanRepo) ListByCompany(_ context.Context, _ uuid.UUID, limit int) ([]entity.ScanResult, error) {
	if limit < len(f.scans) {
		return f.scans[:limit], nil
	}
	return f.scans, nil
}
func (f *fakeScanRepo) Resolve(context.Context, uuid.UUID, constants.ScanStatus, *uuid.UUID) error {
	return nil
}

func TestExportScansXLSX(t *testing.T) {
	amount := 1500.0
	best := entity.CandidateMatch{CustomerID: uuid.New(), Name: "عصام عبدالله", Confidence: 91}
	repo := &fakeScanRepo{scans: []entity.ScanResult{{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Filename:  "فاتورة.jpg",
		Status:    constants.ScanStatusMatched,
		Tier:      constants.TierAutoAssign,
		Fields: entity.ExtractedFields{
			CustomerName: "عصام عبدالله",
			CarNumber:    "123456",
			TotalAmount:  &amount,
		},
		Matching: entity.MatchingResult{
			BestMatch:       &best,
			AllMatches:      []entity.CandidateMatch{best},
			TotalConfidence: 91,
		},
		Processing: entity.ProcessingInfo{
			LanguageDetected: constants.LanguageArabic,
			OCRConfidence:    0.8,
		},
	}}}

	svc := NewService(repo, nil)
	data, err := svc.ExportScansXLSX(context.Background(), uuid.New(), 50)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows("Scans")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Scanned At", rows[0][0])
	assert.Equal(t, "فاتورة.jpg", rows[1][1])
	assert.Equal(t, "MATCHED", rows[1][2])
	assert.Equal(t, "auto_assign", rows[1][3])
	assert.Equal(t, "عصام عبدالله", rows[1][4])
	assert.Equal(t, "123456", rows[1][5])
}

func TestExportScansXLSXEmpty(t *testing.T) {
	svc := NewService(&fakeScanRepo{}, nil)
	data, err := svc.ExportScansXLSX(context.Background(), uuid.New(), 50)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows("Scans")
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}
