package pipeline

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetify/invoice-scan/constants"
	"github.com/fleetify/invoice-scan/internal/common"
	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/history"
	"github.com/fleetify/invoice-scan/internal/repository"
)

// matchedScan runs a scan through the processor so the feedback tests start
// from a realistic MATCHED row.
func matchedScan(t *testing.T, db *testDeps) *entity.ScanResult {
	t.Helper()
	amount := 1500.0
	extractor := &fakeExtractor{fields: entity.ExtractedFields{
		CustomerName:   "عصام عبدالله السالم",
		CarNumber:      "123456",
		ContractNumber: "LTO-2024-001",
		TotalAmount:    &amount,
		RawText:        "فاتورة إيجار للسيد عصام عبدالله السالم لوحة 123456",
	}}
	p, hist, scans := newTestProcessor(t, db.db, extractor)
	db.hist = hist
	db.scans = scans

	scan, err := p.ProcessScan(context.Background(), ScanRequest{
		CompanyID:   db.companyID,
		CompanyName: "شركة السالم لتأجير السيارات",
		Filename:    "invoice.png",
		ImageBytes:  testImagePNG(t),
	})
	require.NoError(t, err)
	require.Equal(t, constants.ScanStatusMatched, scan.Status)
	return scan
}

type testDeps struct {
	db         *sql.DB
	companyID  uuid.UUID
	customerID uuid.UUID
	hist       *history.Ring
	scans      repository.ScanRepository
}

func newDeps(t *testing.T) *testDeps {
	t.Helper()
	d := &testDeps{
		db:         newTestDB(t),
		companyID:  uuid.New(),
		customerID: uuid.New(),
	}
	seedCustomer(t, d.db, d.companyID, d.customerID, "عصام عبدالله السالم", "123456", "LTO-2024-001", 1500)
	return d
}

func TestFeedbackConfirm(t *testing.T) {
	d := newDeps(t)
	scan := matchedScan(t, d)
	feedback := repository.NewFeedbackRepository(d.db, nil)
	recorder := NewFeedbackRecorder(d.scans, feedback, d.hist, nil)

	resolved, err := recorder.Record(context.Background(), Verdict{
		ScanID:   scan.ID,
		Feedback: entity.FeedbackConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusConfirmed, resolved.Status)
	require.NotNil(t, resolved.ConfirmedCustomerID)
	assert.Equal(t, d.customerID, *resolved.ConfirmedCustomerID)

	stored, err := d.scans.Get(context.Background(), scan.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusConfirmed, stored.Status)
	require.NotNil(t, stored.ConfirmedCustomerID)
	assert.Equal(t, d.customerID, *stored.ConfirmedCustomerID)

	rows, err := feedback.ListByScan(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.FeedbackConfirmed, rows[0].Feedback)
	require.NotNil(t, rows[0].SuggestedCustomerID)
	assert.Equal(t, d.customerID, *rows[0].SuggestedCustomerID)
	assert.Equal(t, scan.Matching.TotalConfidence, rows[0].Confidence)

	recent := d.hist.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, constants.ScanStatusConfirmed, recent[0].Status)
}

func TestFeedbackReject(t *testing.T) {
	d := newDeps(t)
	scan := matchedScan(t, d)
	feedback := repository.NewFeedbackRepository(d.db, nil)
	recorder := NewFeedbackRecorder(d.scans, feedback, d.hist, nil)

	resolved, err := recorder.Record(context.Background(), Verdict{
		ScanID:   scan.ID,
		Feedback: entity.FeedbackRejected,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusRejected, resolved.Status)
	assert.Nil(t, resolved.ConfirmedCustomerID)

	rows, err := feedback.ListByScan(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].ConfirmedCustomerID)
}

func TestFeedbackCorrected(t *testing.T) {
	d := newDeps(t)
	scan := matchedScan(t, d)
	otherCustomer := uuid.New()
	seedCustomer(t, d.db, uuid.New(), otherCustomer, "خالد المري", "777888", "LTO-2024-099", 900)

	feedback := repository.NewFeedbackRepository(d.db, nil)
	recorder := NewFeedbackRecorder(d.scans, feedback, d.hist, nil)

	resolved, err := recorder.Record(context.Background(), Verdict{
		ScanID:     scan.ID,
		Feedback:   entity.FeedbackCorrected,
		CustomerID: &otherCustomer,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusConfirmed, resolved.Status)
	require.NotNil(t, resolved.ConfirmedCustomerID)
	assert.Equal(t, otherCustomer, *resolved.ConfirmedCustomerID)

	rows, err := feedback.ListByScan(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// Suggested and confirmed diverge: that is the training signal.
	require.NotNil(t, rows[0].SuggestedCustomerID)
	assert.Equal(t, d.customerID, *rows[0].SuggestedCustomerID)
	require.NotNil(t, rows[0].ConfirmedCustomerID)
	assert.Equal(t, otherCustomer, *rows[0].ConfirmedCustomerID)
}

func TestFeedbackDoubleResolveConflicts(t *testing.T) {
	d := newDeps(t)
	scan := matchedScan(t, d)
	feedback := repository.NewFeedbackRepository(d.db, nil)
	recorder := NewFeedbackRecorder(d.scans, feedback, d.hist, nil)

	_, err := recorder.Record(context.Background(), Verdict{ScanID: scan.ID, Feedback: entity.FeedbackConfirmed})
	require.NoError(t, err)

	_, err = recorder.Record(context.Background(), Verdict{ScanID: scan.ID, Feedback: entity.FeedbackRejected})
	require.ErrorIs(t, err, common.ErrScanStateConflict)

	// The first verdict stands; only one feedback row exists.
	rows, err := feedback.ListByScan(context.Background(), scan.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFeedbackUnknownScan(t *testing.T) {
	d := newDeps(t)
	matchedScan(t, d)
	recorder := NewFeedbackRecorder(d.scans, repository.NewFeedbackRepository(d.db, nil), d.hist, nil)

	_, err := recorder.Record(context.Background(), Verdict{ScanID: uuid.New(), Feedback: entity.FeedbackConfirmed})
	require.ErrorIs(t, err, common.ErrNotFound)
}

type failingFeedbackRepo struct{}

func (failingFeedbackRepo) Record(context.Context, entity.MatchingFeedback) error {
	return common.ErrFeedbackWrite
}

func (failingFeedbackRepo) ListByScan(context.Context, uuid.UUID) ([]entity.MatchingFeedback, error) {
	return nil, nil
}

func TestFeedbackWriteFailureKeepsStatus(t *testing.T) {
	d := newDeps(t)
	scan := matchedScan(t, d)
	recorder := NewFeedbackRecorder(d.scans, failingFeedbackRepo{}, d.hist, nil)

	resolved, err := recorder.Record(context.Background(), Verdict{ScanID: scan.ID, Feedback: entity.FeedbackConfirmed})
	require.ErrorIs(t, err, common.ErrFeedbackWrite)
	require.NotNil(t, resolved)
	assert.Equal(t, constants.ScanStatusConfirmed, resolved.Status)

	// The status change is never rolled back.
	stored, err := d.scans.Get(context.Background(), scan.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusConfirmed, stored.Status)
}
