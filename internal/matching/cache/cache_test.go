package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govregistry/internal/matching"
	"govregistry/internal/organization/models"
	"govregistry/pkg/platform/sentinel"
)

func TestKeyNormalizes(t *testing.T) {
	assert.Equal(t, Key("EPA", "Agency"), Key("  epa ", "agency"))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	_, err := c.Get(ctx, Key("EPA", ""))
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	stored := &matching.ValidationResult{
		Matched:          true,
		MatchType:        matching.MatchExact,
		Confidence:       1.0,
		StandardizedName: "Environmental Protection Agency",
	}
	require.NoError(t, c.Set(ctx, Key("EPA", ""), stored))

	got, err := c.Get(ctx, Key("EPA", ""))
	require.NoError(t, err)
	assert.Equal(t, stored.StandardizedName, got.StandardizedName)
}

func TestMemoryCacheExpiresAndEvicts(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	now := time.Now()
	c.clock = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "k", &matching.ValidationResult{Matched: true}))

	c.clock = func() time.Time { return now.Add(2 * time.Minute) }
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Empty(t, c.entries)
}

func TestMemoryCacheStoresCopiesNotAliases(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	stored := &matching.ValidationResult{
		Matched:             true,
		MatchType:           matching.MatchExact,
		Confidence:          1.0,
		MatchedOrganization: &models.GovernmentOrganization{OfficialName: "Environmental Protection Agency"},
		StandardizedName:    "Environmental Protection Agency",
		Suggestions:         []string{"Environmental Protection Agency"},
	}
	require.NoError(t, c.Set(ctx, "k", stored))
	stored.StandardizedName = "mutated after set"

	first, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Environmental Protection Agency", first.StandardizedName)

	first.MatchedOrganization.OfficialName = "mutated after get"
	first.Suggestions[0] = "mutated after get"

	second, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "Environmental Protection Agency", second.MatchedOrganization.OfficialName)
	assert.Equal(t, []string{"Environmental Protection Agency"}, second.Suggestions)
}
