package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/history"
	"github.com/fleetify/invoice-scan/internal/llm"
	"github.com/fleetify/invoice-scan/internal/match"
	"github.com/fleetify/invoice-scan/internal/preprocess"
	"github.com/fleetify/invoice-scan/internal/repository"
)

type fakeExtractor struct {
	fields entity.ExtractedFields
	err    error
	calls  int
	last   llm.ExtractRequest
}

func (f *fakeExtractor) ExtractInvoice(_ context.Context, req llm.ExtractRequest) (entity.ExtractedFields, []byte, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return entity.ExtractedFields{}, nil, f.err
	}
	return f.fields, []byte(`{}`), nil
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, pool, err := repository.Open(context.Background(), common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.Nil(t, pool)
	t.Cleanup(func() { repository.Close(db, nil, nil) })
	require.NoError(t, repository.Migrate(context.Background(), db))
	return db
}

func seedCustomer(t *testing.T, db *sql.DB, companyID, customerID uuid.UUID, name, plate, contractNumber string, monthly float64) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Unix()
	vehicleID := uuid.New()
	contractID := uuid.New()

	_, err := db.ExecContext(ctx, `INSERT INTO companies (id, name, created_at) VALUES ($1,$2,$3)`,
		companyID.String(), "شركة السالم لتأجير السيارات", now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO customers (id, company_id, name, phone, updated_at) VALUES ($1,$2,$3,$4,$5)`,
		customerID.String(), companyID.String(), name, "+97455123456", now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO vehicles (id, company_id, customer_id, plate_number, updated_at) VALUES ($1,$2,$3,$4,$5)`,
		vehicleID.String(), companyID.String(), customerID.String(), plate, now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO contracts (id, company_id, customer_id, vehicle_id, contract_number, monthly_amount, status, updated_at) VALUES ($1,$2,$3,$4,$5,$6,'active',$7)`,
		contractID.String(), companyID.String(), customerID.String(), vehicleID.String(), contractNumber, monthly, now)
	require.NoError(t, err)
}

func testImagePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestProcessor(t *testing.T, db *sql.DB, extractor llm.VisionExtractor) (*Processor, *history.Ring, repository.ScanRepository) {
	t.Helper()
	scans := repository.NewScanRepository(db, nil)
	candidates := repository.NewCandidateRepository(db, nil)
	hist := history.NewRing(history.DefaultCapacity)

	pre := NewPreprocessStage(preprocess.DefaultOptions(), nil)
	ext := NewExtractStage(extractor, 5*time.Second, nil)
	matcher := match.NewMatcher(candidates, match.DefaultMaxCandidates, nil)
	ms := NewMatchStage(matcher, constants.DefaultAutoAssignThreshold, constants.DefaultReviewThreshold, nil)

	return NewProcessor(nil, pre, ext, ms, scans, hist), hist, scans
}

func TestProcessScanHappyPath(t *testing.T) {
	db := newTestDB(t)
	companyID := uuid.New()
	customerID := uuid.New()
	seedCustomer(t, db, companyID, customerID, "عصام عبدالله السالم", "123456", "LTO-2024-001", 1500)

	amount := 1500.0
	extractor := &fakeExtractor{fields: entity.ExtractedFields{
		CustomerName:     "عصام عبدالله السالم",
		CarNumber:        "123456",
		ContractNumber:   "LTO-2024-001",
		TotalAmount:      &amount,
		LanguageDetected: constants.LanguageArabic,
		RawText:          "فاتورة إيجار شهر يناير للسيد عصام عبدالله السالم لوحة رقم 123456 عقد LTO-2024-001 المبلغ 1,500.00 ريال",
	}}
	p, hist, scans := newTestProcessor(t, db, extractor)

	scan, err := p.ProcessScan(context.Background(), ScanRequest{
		CompanyID:   companyID,
		CompanyName: "شركة السالم لتأجير السيارات",
		Filename:    "invoice_jan.png",
		ImageBytes:  testImagePNG(t),
		Engine:      constants.EngineGemini,
	})
	require.NoError(t, err)
	require.NotNil(t, scan)

	assert.Equal(t, constants.ScanStatusMatched, scan.Status)
	assert.Equal(t, constants.TierAutoAssign, scan.Tier)
	require.NotNil(t, scan.Matching.BestMatch)
	assert.Equal(t, customerID, scan.Matching.BestMatch.CustomerID)
	assert.GreaterOrEqual(t, scan.Matching.TotalConfidence, 85.0)
	assert.NotEmpty(t, scan.Improvements)
	assert.Equal(t, constants.LanguageArabic, scan.Processing.LanguageDetected)
	assert.Equal(t, 1, extractor.calls)
	assert.Contains(t, extractor.last.ImageDataURL, "data:image/")

	stored, err := scans.Get(context.Background(), scan.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusMatched, stored.Status)
	require.NotNil(t, stored.Matching.BestMatch)
	assert.Equal(t, customerID, stored.Matching.BestMatch.CustomerID)

	recent := hist.Recent(10)
	require.Len(t, recent, 1)
	assert.Equal(t, scan.ID, recent[0].ID)
}

func TestProcessScanRejectsNonImage(t *testing.T) {
	db := newTestDB(t)
	p, hist, scans := newTestProcessor(t, db, &fakeExtractor{})

	_, err := p.ProcessScan(context.Background(), ScanRequest{
		CompanyID:  uuid.New(),
		Filename:   "invoice.pdf",
		ImageBytes: []byte("%PDF-1.4"),
	})
	require.ErrorIs(t, err, common.ErrNotImage)

	// No record of any kind before the gate.
	assert.Equal(t, 0, hist.Len())
	list, err := scans.ListByCompany(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProcessScanExtractionFailurePersistsFailed(t *testing.T) {
	db := newTestDB(t)
	companyID := uuid.New()
	extractor := &fakeExtractor{err: errors.Join(common.ErrExtractionFailed, errors.New("upstream 502"))}
	p, hist, scans := newTestProcessor(t, db, extractor)

	_, err := p.ProcessScan(context.Background(), ScanRequest{
		CompanyID:  companyID,
		Filename:   "blurry.jpg",
		ImageBytes: testImagePNG(t),
	})
	require.ErrorIs(t, err, common.ErrExtractionFailed)

	list, err := scans.ListByCompany(context.Background(), companyID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, constants.ScanStatusFailed, list[0].Status)
	assert.Equal(t, constants.TierManualReview, list[0].Tier)
	assert.Nil(t, list[0].Matching.BestMatch)

	require.Equal(t, 1, hist.Len())
	assert.Equal(t, constants.ScanStatusFailed, hist.Recent(1)[0].Status)
}

func TestProcessScanEmptyPoolStillMatched(t *testing.T) {
	db := newTestDB(t)
	companyID := uuid.New()
	extractor := &fakeExtractor{fields: entity.ExtractedFields{
		CustomerName: "Ahmed Hassan",
		RawText:      "Invoice for Ahmed Hassan, total 900 QAR",
	}}
	p, _, _ := newTestProcessor(t, db, extractor)

	scan, err := p.ProcessScan(context.Background(), ScanRequest{
		CompanyID:  companyID,
		Filename:   "scan.jpg",
		ImageBytes: testImagePNG(t),
	})
	require.NoError(t, err)

	assert.Equal(t, constants.ScanStatusMatched, scan.Status)
	assert.Equal(t, constants.TierManualReview, scan.Tier)
	assert.Nil(t, scan.Matching.BestMatch)
	assert.Zero(t, scan.Matching.TotalConfidence)
}

func TestProcessScanCorruptImageFallsThrough(t *testing.T) {
	db := newTestDB(t)
	companyID := uuid.New()
	extractor := &fakeExtractor{fields: entity.ExtractedFields{
		CustomerName: "فهد الكواري",
		RawText:      "فاتورة فهد الكواري",
	}}
	p, _, _ := newTestProcessor(t, db, extractor)

	scan, err := p.ProcessScan(context.Background(), ScanRequest{
		CompanyID:  companyID,
		Filename:   "photo.jpg",
		ImageBytes: []byte("not really a jpeg"),
	})
	require.NoError(t, err)

	// Preprocessing is best effort: the raw bytes still reach extraction.
	assert.Equal(t, constants.ScanStatusMatched, scan.Status)
	assert.Empty(t, scan.Improvements)
	assert.Equal(t, 1, extractor.calls)
}

func TestExtractStageLanguageFallback(t *testing.T) {
	extractor := &fakeExtractor{fields: entity.ExtractedFields{
		CustomerName: "خالد المري",
		RawText:      "فاتورة إيجار مستحقة من السيد خالد المري",
	}}
	stage := NewExtractStage(extractor, time.Second, nil)

	_, info, _, err := stage.Run(context.Background(), testImagePNG(t), "a.png", constants.EngineGemini, "")
	require.NoError(t, err)
	assert.Equal(t, constants.LanguageArabic, info.LanguageDetected)
	assert.Equal(t, constants.EngineGemini, info.OCREngine)
	assert.Greater(t, info.OCRConfidence, float32(0))
}
