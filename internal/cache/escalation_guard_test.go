package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEscalationGuard(t *testing.T) {
	g := NewMemoryEscalationGuard(time.Minute)
	ctx := context.Background()

	first, err := g.Acquire(ctx, "a")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := g.Acquire(ctx, "a")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := g.Acquire(ctx, "b")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestMemoryEscalationGuard_WindowExpires(t *testing.T) {
	g := NewMemoryEscalationGuard(30 * time.Millisecond)
	ctx := context.Background()

	first, _ := g.Acquire(ctx, "a")
	require.True(t, first)

	time.Sleep(60 * time.Millisecond)
	again, _ := g.Acquire(ctx, "a")
	assert.True(t, again)
}

func TestMemoryEscalationGuard_Release(t *testing.T) {
	g := NewMemoryEscalationGuard(time.Minute)
	ctx := context.Background()

	first, _ := g.Acquire(ctx, "a")
	require.True(t, first)
	require.NoError(t, g.Release(ctx, "a"))

	again, err := g.Acquire(ctx, "a")
	require.NoError(t, err)
	assert.True(t, again)

	assert.NoError(t, g.Release(ctx, "never-taken"))
}
