package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := New()

	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(v))

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New().WithClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "k", []byte("1"), time.Minute))

	now = now.Add(59 * time.Second)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New().WithClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "k", []byte("1"), 0))
	now = now.Add(24 * time.Hour)

	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
}

func TestCache_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	c := New()
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	v, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}
