package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClassificationService is the core service for advertisement detection.
// It wraps a classifier backend with the policy the pipeline relies on:
// trusted-sender bypass, empty-body handling, per-sender verdict caching,
// and the score threshold that turns a score into a label.
type ClassificationService struct {
	classifier   Classifier
	cache        VerdictCache
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	adThreshold  float64
	trusted      TrustedChecker
}

// NewClassificationService creates a new classification service
func NewClassificationService(
	classifier Classifier,
	cache VerdictCache,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	adThreshold float64,
	trusted TrustedChecker,
) *ClassificationService {
	return &ClassificationService{
		classifier:   classifier,
		cache:        cache,
		logger:       logger,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
		adThreshold:  adThreshold,
		trusted:      trusted,
	}
}

// Classify labels one message. A classifier failure is not an error to
// the caller: the message is labeled unknown and the run goes on. The
// returned error is reserved for context cancellation.
func (s *ClassificationService) Classify(ctx context.Context, msg *MessageRecord) (*ClassificationResult, error) {
	// Trusted senders skip the classifier entirely
	if s.trusted != nil && s.trusted.IsTrusted(msg.Address) {
		s.logger.Info("Skipping classification for trusted domain",
			zap.String("sender", msg.Address),
			zap.String("action", "trusted_bypass"))

		return &ClassificationResult{
			Label:        LabelNotAdvertisement,
			Score:        0.0,
			Confidence:   1.0,
			Explanation:  "Sender domain is trusted",
			ClassifiedAt: time.Now(),
			ModelUsed:    "trusted",
			ProcessingID: uuid.NewString(),
		}, nil
	}

	// An empty body is a classification failure per the error taxonomy
	if strings.TrimSpace(msg.Body) == "" {
		s.logger.Warn("Message has no classifiable body",
			zap.String("message_id", msg.ID),
			zap.String("sender", msg.Address))
		return s.unknownResult("message body is empty"), nil
	}

	// Check cache if enabled
	if s.cacheEnabled && s.cache != nil {
		if entry, err := s.cache.Get(ctx, msg.Address); err == nil {
			s.logger.Debug("Verdict cache hit for sender", zap.String("sender", msg.Address))
			return &ClassificationResult{
				Label:        entry.Label,
				Score:        entry.Score,
				Confidence:   entry.Confidence,
				Explanation:  "Result from verdict cache",
				ClassifiedAt: time.Now(),
				ModelUsed:    "cache",
				ProcessingID: uuid.NewString(),
			}, nil
		}
	}

	result, err := s.classifier.ClassifyMessage(ctx, msg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Classification failed, labeling unknown",
			zap.String("message_id", msg.ID),
			zap.String("sender", msg.Address),
			zap.Error(err))
		return s.unknownResult("classifier error: " + err.Error()), nil
	}

	result.Label = s.labelForScore(result.Score)
	if result.ProcessingID == "" {
		result.ProcessingID = uuid.NewString()
	}

	// Update cache with the fresh verdict if enabled
	if s.cacheEnabled && s.cache != nil {
		entry := &VerdictEntry{
			SenderAddress: msg.Address,
			Label:         result.Label,
			Score:         result.Score,
			Confidence:    result.Confidence,
			LastSeen:      time.Now(),
			ExpiresAt:     time.Now().Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update verdict cache", zap.Error(err))
		}
	}

	return result, nil
}

// labelForScore applies the advertisement threshold to a backend score
func (s *ClassificationService) labelForScore(score float64) Label {
	if score >= s.adThreshold {
		return LabelAdvertisement
	}
	return LabelNotAdvertisement
}

func (s *ClassificationService) unknownResult(reason string) *ClassificationResult {
	return &ClassificationResult{
		Label:        LabelUnknown,
		Score:        0.0,
		Confidence:   0.0,
		Explanation:  reason,
		ClassifiedAt: time.Now(),
		ModelUsed:    "none",
		ProcessingID: uuid.NewString(),
	}
}
