package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTL_CachesUntilExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTTL[int](time.Minute)
	c.SetNowFunc(func() time.Time { return now })

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(30 * time.Second)
	v, err = c.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	v, err = c.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestTTL_ErrorNotCached(t *testing.T) {
	c := NewTTL[string](time.Minute)

	_, err := c.Get(context.Background(), func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	require.EqualError(t, err, "boom")

	v, err := c.Get(context.Background(), func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestTTL_ZeroDisablesCaching(t *testing.T) {
	c := NewTTL[int](0)

	var calls int
	for range 3 {
		_, err := c.Get(context.Background(), func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestTTL_Invalidate(t *testing.T) {
	c := NewTTL[int](time.Hour)

	var calls int
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _ = c.Get(context.Background(), load)
	c.Invalidate()
	v, err := c.Get(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestTTL_ConcurrentLoadsCollapse(t *testing.T) {
	c := NewTTL[int](time.Hour)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), load)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
