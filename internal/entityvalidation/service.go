// Package entityvalidation exposes free-text mention validation to
// callers outside the directory core, such as an upstream text-extraction
// pipeline. It is read-only over the registry.
package entityvalidation

import (
	"context"
	"errors"
	"log/slog"

	"govregistry/internal/matching"
	"govregistry/internal/matching/cache"
)

// Validator is the matching operation the façade fronts.
type Validator interface {
	ValidateEntityMention(ctx context.Context, text, entityTypeHint string) (*matching.ValidationResult, error)
}

// ResultCache stores validation results between calls.
type ResultCache interface {
	Get(ctx context.Context, key string) (*matching.ValidationResult, error)
	Set(ctx context.Context, key string, result *matching.ValidationResult) error
}

// Service answers "is this mention a known government organization".
type Service struct {
	validator Validator
	cache     ResultCache
	logger    *slog.Logger
}

type Option func(s *Service)

func WithCache(c ResultCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs the façade. Without a cache every call hits the engine.
func New(validator Validator, opts ...Option) *Service {
	s := &Service{validator: validator}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate resolves a mention, consulting the cache first. Cache failures
// are logged and ignored; the engine answer always wins.
func (s *Service) Validate(ctx context.Context, text, entityTypeHint string) (*matching.ValidationResult, error) {
	key := cache.Key(text, entityTypeHint)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrNotFound) && s.logger != nil {
			s.logger.WarnContext(ctx, "validation cache read failed", "error", err)
		}
	}

	result, err := s.validator.ValidateEntityMention(ctx, text, entityTypeHint)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "validation cache write failed", "error", err)
		}
	}
	return result, nil
}
