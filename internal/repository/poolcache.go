package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/fleetify/invoice-scan/internal/entity"
)

// NewRedisClient builds the rueidis client for the candidate-pool cache.
func NewRedisClient(addr string) (rueidis.Client, error) {
	return rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
}

// CachedCandidateRepository layers a TTL cache over a CandidateRepository.
// Every scan re-reads the tenant pool, which for large fleets is a wide
// three-way join; caching it briefly is safe because candidate data changes
// far slower than scans arrive. Cache failures degrade to the inner source.
type CachedCandidateRepository struct {
	inner  CandidateRepository
	client rueidis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedCandidateRepository(client rueidis.Client, inner CandidateRepository, ttl time.Duration, logger *slog.Logger) *CachedCandidateRepository {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCandidateRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func poolKey(companyID uuid.UUID) string {
	return "invoice-scan:candidates:" + companyID.String()
}

func (c *CachedCandidateRepository) CandidatesForCompany(ctx context.Context, companyID uuid.UUID) ([]entity.Candidate, error) {
	key := poolKey(companyID)

	data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err == nil {
		var pool []entity.Candidate
		if jErr := json.Unmarshal(data, &pool); jErr == nil {
			return pool, nil
		}
		// corrupt entry: ignore and refill below
	} else if !rueidis.IsRedisNil(err) {
		c.logger.Warn("repo.poolcache.get_failed", "company_id", companyID, "error", err)
	}

	pool, err := c.inner.CandidatesForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if encoded, jErr := json.Marshal(pool); jErr == nil {
		cmd := c.client.B().Set().Key(key).Value(rueidis.BinaryString(encoded)).Ex(c.ttl).Build()
		if sErr := c.client.Do(ctx, cmd).Error(); sErr != nil {
			c.logger.Warn("repo.poolcache.set_failed", "company_id", companyID, "error", sErr)
		}
	}
	return pool, nil
}

// Invalidate drops the cached pool, to be called after candidate data
// changes (new contract, plate update).
func (c *CachedCandidateRepository) Invalidate(ctx context.Context, companyID uuid.UUID) {
	cmd := c.client.B().Del().Key(poolKey(companyID)).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("repo.poolcache.invalidate_failed", "company_id", companyID, "error", err)
	}
}
