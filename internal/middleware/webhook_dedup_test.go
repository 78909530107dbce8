package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduperMarksDuplicates(t *testing.T) {
	d := newMemoryUpdateDeduper(time.Minute)
	ctx := context.Background()

	seen, err := d.Seen(ctx, 100)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.Seen(ctx, 100)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = d.Seen(ctx, 101)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestNewUpdateDeduperFallsBackWithoutRedis(t *testing.T) {
	d, err := NewUpdateDeduper("", "", 0, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, d)

	seen, err := d.Seen(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, seen)
}
