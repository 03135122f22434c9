//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"govregistry/internal/matching"
	"govregistry/internal/matching/cache"
	"govregistry/internal/platform/redis"
	"govregistry/pkg/platform/sentinel"
	"govregistry/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	container *containers.RedisContainer
	cache     *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.container = containers.GetManager().GetRedis(s.T())
	s.cache = cache.NewRedis(&redis.Client{Client: s.container.Client}, time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	key := cache.Key("Environmental Protection Agency", "")

	_, err := s.cache.Get(ctx, key)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	stored := &matching.ValidationResult{
		Matched:          true,
		MatchType:        matching.MatchExact,
		Confidence:       1.0,
		StandardizedName: "Environmental Protection Agency",
	}
	s.Require().NoError(s.cache.Set(ctx, key, stored))

	got, err := s.cache.Get(ctx, key)
	s.Require().NoError(err)
	s.Equal(stored.StandardizedName, got.StandardizedName)
	s.Equal(matching.MatchExact, got.MatchType)
}
