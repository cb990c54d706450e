package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_StartsOptimistic(t *testing.T) {
	m := NewMonitor(func(context.Context) error { return nil }, nil)
	assert.True(t, m.Online())
}

func TestMonitor_ThreeFailuresFlipOffline(t *testing.T) {
	m := NewMonitor(func(context.Context) error {
		return errors.New("connection refused")
	}, nil)
	ctx := context.Background()

	_ = m.Check(ctx)
	_ = m.Check(ctx)
	assert.True(t, m.Online(), "two failures are not conclusive")

	_ = m.Check(ctx)
	assert.False(t, m.Online())
	assert.Error(t, m.LastError())
}

func TestMonitor_SingleSuccessRestores(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	m := NewMonitor(func(context.Context) error {
		if fail.Load() {
			return errors.New("connection refused")
		}
		return nil
	}, nil)
	ctx := context.Background()

	for range 3 {
		_ = m.Check(ctx)
	}
	require.False(t, m.Online())

	fail.Store(false)
	require.NoError(t, m.Check(ctx))
	assert.True(t, m.Online())
}

func TestMonitor_FailureStreakMustBeConsecutive(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(func(context.Context) error {
		// Every third probe succeeds.
		if calls.Add(1)%3 == 0 {
			return nil
		}
		return errors.New("connection refused")
	}, nil)
	ctx := context.Background()

	for range 9 {
		_ = m.Check(ctx)
	}
	assert.True(t, m.Online())
}

func TestMonitor_OnChangeFiresOnFlipsOnly(t *testing.T) {
	var flips []bool
	m := NewMonitor(func(context.Context) error {
		return errors.New("connection refused")
	}, nil)
	m.OnChange(func(online bool) { flips = append(flips, online) })
	ctx := context.Background()

	for range 6 {
		_ = m.Check(ctx)
	}

	assert.Equal(t, []bool{false}, flips, "repeated failures report one transition")
}

func TestMonitor_ConcurrentChecksWithBackgroundLoop(t *testing.T) {
	m := NewMonitor(func(context.Context) error { return nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx, time.Millisecond)
	defer m.Stop()

	// On-demand checks race the background loop; the counters must stay
	// consistent under both drivers.
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				assert.NoError(t, m.Check(ctx))
			}
		}()
	}
	wg.Wait()

	assert.True(t, m.Online())
	assert.NoError(t, m.LastError())
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	probe := HTTPProbe(srv.Client(), srv.URL+"/api/products")
	assert.NoError(t, probe(context.Background()), "any response proves reachability")

	srv.Close()
	assert.Error(t, probe(context.Background()))
}
