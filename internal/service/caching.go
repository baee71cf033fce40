package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/medsafe-mcp-server/internal/domain"
)

// Cache is the byte-oriented store behind CachingAssessor.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// CachingAssessor memoizes successful assessments. Keys include the rule
// tables revision, which changes with the rule content even when the version
// string does not, so a reload never serves stale verdicts.
type CachingAssessor struct {
	next    domain.Assessor
	cache   Cache
	version func() string
	logger  *logrus.Logger
}

// NewCachingAssessor wraps next. version reports the tables revision in use.
func NewCachingAssessor(next domain.Assessor, cache Cache, version func() string, logger *logrus.Logger) *CachingAssessor {
	return &CachingAssessor{next: next, cache: cache, version: version, logger: logger}
}

type cacheKey struct {
	Request domain.DrugRequest    `json:"request"`
	Patient domain.PatientContext `json:"patient"`
	Version string                `json:"version"`
}

// assessmentKey hashes the request, patient and tables version.
func assessmentKey(req domain.DrugRequest, patient domain.PatientContext, version string) (string, error) {
	data, err := json.Marshal(cacheKey{Request: req, Patient: patient, Version: version})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (c *CachingAssessor) Assess(ctx context.Context, req domain.DrugRequest, patient domain.PatientContext) (*domain.Assessment, error) {
	key, err := assessmentKey(req, patient, c.version())
	if err != nil {
		c.logger.WithError(err).Warn("Failed to build assessment cache key")
		return c.next.Assess(ctx, req, patient)
	}

	if data, ok := c.cache.Get(ctx, key); ok {
		var cached domain.Assessment
		if err := json.Unmarshal(data, &cached); err == nil {
			c.logger.WithField("drug", req.Drug).Debug("Assessment served from cache")
			return &cached, nil
		}
		c.logger.WithField("key", key).Warn("Discarding undecodable cache entry")
	}

	a, err := c.next.Assess(ctx, req, patient)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, a)
	return a, nil
}

// store skips assessments carrying an evaluator fault.
func (c *CachingAssessor) store(ctx context.Context, key string, a *domain.Assessment) {
	if a.Error != "" {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode assessment for cache")
		return
	}
	c.cache.Set(ctx, key, data)
}

// AssessBatch answers cached items directly and sends only the misses to the
// wrapped assessor, preserving input order.
func (c *CachingAssessor) AssessBatch(ctx context.Context, items []domain.BatchItem) []*domain.Assessment {
	results := make([]*domain.Assessment, len(items))
	keys := make([]string, len(items))
	var (
		misses  []domain.BatchItem
		missIdx []int
	)

	version := c.version()
	for i, item := range items {
		key, err := assessmentKey(item.Request, item.Patient, version)
		if err == nil {
			keys[i] = key
			if data, ok := c.cache.Get(ctx, key); ok {
				var cached domain.Assessment
				if json.Unmarshal(data, &cached) == nil {
					results[i] = &cached
					continue
				}
			}
		}
		misses = append(misses, item)
		missIdx = append(missIdx, i)
	}

	if len(misses) > 0 {
		for j, a := range c.next.AssessBatch(ctx, misses) {
			i := missIdx[j]
			results[i] = a
			if a != nil && keys[i] != "" && a.RiskLevel != domain.RiskUnknown {
				c.store(ctx, keys[i], a)
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"items":  len(items),
		"cached": len(items) - len(misses),
	}).Debug("Batch assessment cache lookup")
	return results
}

func (c *CachingAssessor) ClassifySeverity(ctx context.Context, text string, patient *domain.PatientContext) (*domain.SeverityClassification, error) {
	return c.next.ClassifySeverity(ctx, text, patient)
}

func (c *CachingAssessor) CheckInteractions(ctx context.Context, drugs []string, conditions []string) (*domain.InteractionResult, error) {
	return c.next.CheckInteractions(ctx, drugs, conditions)
}

func (c *CachingAssessor) InteractionDetail(ctx context.Context, drugA, drugB string) (*domain.InteractionDetail, error) {
	return c.next.InteractionDetail(ctx, drugA, drugB)
}

func (c *CachingAssessor) RenalAdjust(ctx context.Context, drug string, crcl float64, dose *float64) (*domain.RenalAdjustment, error) {
	return c.next.RenalAdjust(ctx, drug, crcl, dose)
}
