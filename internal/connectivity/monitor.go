// Package connectivity tracks whether the backend is reachable. A background
// probe hits a cheap endpoint at a fixed interval; consecutive-failure and
// consecutive-success thresholds keep the reported state from flapping on a
// single dropped request. Stores consult the state to decide between serving
// cached data and attempting a refresh.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ProbeFunc checks the backend once. It returns nil when the backend is
// reachable.
type ProbeFunc func(ctx context.Context) error

// Monitor runs one probe in a background goroutine and exposes the damped
// online state.
//
// Probe executions serialize through probeMu, whether driven by the
// background loop or an on-demand Check; the online flag and last error
// are read from arbitrary goroutines and use atomics.
type Monitor struct {
	probe            ProbeFunc
	timeout          time.Duration
	failureThreshold int
	successThreshold int
	log              *zap.Logger

	online  atomic.Bool
	lastErr atomic.Pointer[error]

	// probeMu guards the consecutive counters and keeps overlapping probe
	// runs from interleaving their threshold updates.
	probeMu          sync.Mutex
	consecutiveFails int
	consecutiveOK    int

	mu       sync.Mutex
	cancel   context.CancelFunc
	onChange func(online bool)
}

// NewMonitor creates a Monitor around the given probe. The monitor starts
// optimistic: it reports online until the probe has failed three times in a
// row, and a single success restores it.
func NewMonitor(probe ProbeFunc, lg *zap.Logger) *Monitor {
	if lg == nil {
		lg = zap.NewNop()
	}
	m := &Monitor{
		probe:            probe,
		timeout:          5 * time.Second,
		failureThreshold: 3,
		successThreshold: 1,
		log:              lg.Named("connectivity"),
	}
	m.online.Store(true)
	return m
}

// HTTPProbe probes a URL with a GET through the given client. Any response is
// proof of reachability; server-side failures are a transport concern, not a
// connectivity one.
func HTTPProbe(hc *http.Client, url string) ProbeFunc {
	if hc == nil {
		hc = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "build probe request")
		}
		resp, err := hc.Do(req)
		if err != nil {
			return errors.Wrap(err, "probe backend")
		}
		_ = resp.Body.Close()
		return nil
	}
}

// Online reports the damped reachability state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// LastError returns the most recent probe error, or nil.
func (m *Monitor) LastError() error {
	if p := m.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// OnChange registers a callback invoked whenever the online state flips. At
// most one callback is supported; registering replaces the previous one.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Start launches the background probe at the given interval. The first probe
// runs immediately.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.runProbe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runProbe(ctx)
			}
		}
	}()
}

// Stop cancels the background probe. Safe to call multiple times.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Check runs the probe once, synchronously, updating the damped state. The
// background loop uses it; callers can also invoke it for an on-demand check.
func (m *Monitor) Check(ctx context.Context) error {
	m.runProbe(ctx)
	return m.LastError()
}

func (m *Monitor) runProbe(ctx context.Context) {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.probe(probeCtx)
	m.lastErr.Store(&err)

	if err != nil {
		m.consecutiveOK = 0
		m.consecutiveFails++
		if m.consecutiveFails >= m.failureThreshold {
			m.setOnline(false)
		}
		return
	}
	m.consecutiveFails = 0
	m.consecutiveOK++
	if m.consecutiveOK >= m.successThreshold {
		m.setOnline(true)
	}
}

func (m *Monitor) setOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	if online {
		m.log.Info("backend reachable again")
	} else {
		m.log.Warn("backend unreachable", zap.Error(m.LastError()))
	}

	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(online)
	}
}
