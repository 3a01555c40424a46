package match

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetify/invoice-scan/internal/entity"
	"github.com/fleetify/invoice-scan/internal/keyinfo"
)

// DefaultMaxCandidates caps how many ranked candidates a matching result
// carries.
const DefaultMaxCandidates = 10

// CandidateSource supplies the tenant-scoped candidate pool. Implementations
// must never return candidates from another company.
type CandidateSource interface {
	CandidatesForCompany(ctx context.Context, companyID uuid.UUID) ([]entity.Candidate, error)
}

// Matcher ranks a company's candidates against extracted invoice fields.
type Matcher struct {
	src           CandidateSource
	maxCandidates int
	log           *slog.Logger
}

func NewMatcher(src CandidateSource, maxCandidates int, logger *slog.Logger) *Matcher {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{src: src, maxCandidates: maxCandidates, log: logger}
}

// Match scores every candidate of the company and returns them ranked by
// confidence. An empty pool yields zero confidence and no best match, by
// contract; the same extracted fields against the same pool always produce
// the same result.
func (m *Matcher) Match(ctx context.Context, fields entity.ExtractedFields, rawText string, companyID uuid.UUID, ocrConfidence float32) (entity.MatchingResult, error) {
	start := time.Now()

	result := entity.MatchingResult{
		AllMatches:    []entity.CandidateMatch{},
		OCRConfidence: ocrConfidence,
	}

	// The pool query and the raw-text scan are independent; run them in
	// parallel.
	var (
		pool  []entity.Candidate
		err   error
		clues entity.ContextClues
		wg    sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		clues = keyinfo.Extract(rawText)
	}()
	pool, err = m.src.CandidatesForCompany(ctx, companyID)
	wg.Wait()
	if err != nil {
		return result, err
	}
	if len(pool) == 0 {
		m.log.Info("match.empty_pool", "company_id", companyID)
		return result, nil
	}

	// The model's own clues take precedence over the local scan.
	if fields.ContextClues != nil {
		clues = mergeClues(*fields.ContextClues, clues)
	}

	type scored struct {
		cand  entity.Candidate
		score candidateScore
	}
	all := make([]scored, 0, len(pool))
	for _, c := range pool {
		all = append(all, scored{cand: c, score: scoreCandidate(fields, clues, c)})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score.Total != all[j].score.Total {
			return all[i].score.Total > all[j].score.Total
		}
		// equal confidence: most recently updated contract wins
		return all[i].cand.UpdatedAt.After(all[j].cand.UpdatedAt)
	})

	if len(all) > m.maxCandidates {
		all = all[:m.maxCandidates]
	}

	for _, s := range all {
		reasons := s.score.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		result.AllMatches = append(result.AllMatches, entity.CandidateMatch{
			CustomerID:     s.cand.CustomerID,
			Name:           s.cand.Name,
			Phone:          s.cand.Phone,
			PlateNumber:    s.cand.PlateNumber,
			ContractID:     s.cand.ContractID,
			ContractNumber: s.cand.ContractNumber,
			Confidence:     s.score.Total,
			MatchReasons:   reasons,
		})
	}

	best := all[0]
	result.BestMatch = &result.AllMatches[0]
	result.TotalConfidence = best.score.Total
	result.NameSimilarity = best.score.Name
	result.CarMatchScore = best.score.Plate
	result.ContextMatchScore = best.score.Context

	m.log.Info("match.ok",
		"company_id", companyID,
		"pool_size", len(pool),
		"best_customer", best.cand.CustomerID,
		"confidence", result.TotalConfidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// mergeClues unions the model's clues with the locally extracted ones,
// model values first.
func mergeClues(primary, secondary entity.ContextClues) entity.ContextClues {
	return entity.ContextClues{
		CarNumbers:       unionStrings(primary.CarNumbers, secondary.CarNumbers),
		Months:           unionStrings(primary.Months, secondary.Months),
		Amounts:          unionStrings(primary.Amounts, secondary.Amounts),
		AgreementNumbers: unionStrings(primary.AgreementNumbers, secondary.AgreementNumbers),
	}
}

func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := map[string]struct{}{}
	for _, v := range append(append([]string{}, a...), b...) {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
