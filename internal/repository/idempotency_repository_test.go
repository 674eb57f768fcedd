package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyClaim(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryIdempotencyRepository()
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return current }

	got, claimed, err := repo.Claim(ctx, "k1", "t1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "t1", got)

	got, claimed, err = repo.Claim(ctx, "k1", "t2", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "t1", got)

	current = current.Add(2 * time.Hour)
	got, claimed, err = repo.Claim(ctx, "k1", "t3", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "t3", got)
}

func TestMemoryIdempotencyRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryIdempotencyRepository()

	_, _, err := repo.Claim(ctx, "k1", "t1", time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Release(ctx, "k1"))

	got, claimed, err := repo.Claim(ctx, "k1", "t2", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "t2", got)
}
