// Package app wires the client stack: transport chain, API client, session
// manager, catalog and cart stores. It is the single composition point; the
// stores themselves are lifecycle-scoped objects, never ambient singletons.
package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/shopsync/internal/api"
	"github.com/xenking/shopsync/internal/cart"
	"github.com/xenking/shopsync/internal/catalog"
	"github.com/xenking/shopsync/internal/connectivity"
	"github.com/xenking/shopsync/internal/session"
	"github.com/xenking/shopsync/internal/transport"
	"github.com/xenking/shopsync/pkg/credstore"
)

// App bundles one wired client stack.
type App struct {
	Client  *api.Client
	Session *session.Manager
	Catalog *catalog.Store
	Cart    *cart.Cart
	Monitor *connectivity.Monitor
}

// New builds the stack. The transport's token source and the session
// manager depend on each other (the session issues tokens, but talks to the
// backend through the transport), so the source is bound late through a
// small indirection.
func New(cfg *Config, lg *zap.Logger, m *app.Telemetry) (*App, error) {
	source := &lateSource{}

	tcfg := transport.Config{
		MaxRetries:     cfg.HTTP.MaxRetries,
		RetryDelay:     cfg.HTTP.RetryDelay,
		AttemptTimeout: cfg.HTTP.AttemptTimeout,
	}
	if m != nil {
		tcfg.TracerProvider = m.TracerProvider()
	}
	hc := &http.Client{Transport: transport.New(tcfg, source)}

	client, err := api.NewClient(cfg.BaseURL, hc, lg)
	if err != nil {
		return nil, errors.Wrap(err, "create api client")
	}

	var creds credstore.Store
	if cfg.CredFile != "" {
		creds = credstore.NewFileStore(cfg.CredFile)
	}

	sess := session.New(client, creds, lg)
	source.bind(sess)

	// The probe uses a bare client: a reachability check must not consume
	// retry budget or trigger credential refreshes.
	probe := connectivity.HTTPProbe(&http.Client{}, cfg.BaseURL+"/products")

	return &App{
		Client:  client,
		Session: sess,
		Catalog: catalog.New(client, cfg.PageSize, lg),
		Cart:    cart.New(),
		Monitor: connectivity.NewMonitor(probe, lg),
	}, nil
}

// lateSource is a TokenSource bound after construction. Before binding it
// behaves as signed-out.
type lateSource struct {
	mu  sync.RWMutex
	src transport.TokenSource
}

func (l *lateSource) bind(src transport.TokenSource) {
	l.mu.Lock()
	l.src = src
	l.mu.Unlock()
}

func (l *lateSource) Token() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.src == nil {
		return ""
	}
	return l.src.Token()
}

func (l *lateSource) Refresh(ctx context.Context, stale string) (string, error) {
	l.mu.RLock()
	src := l.src
	l.mu.RUnlock()
	if src == nil {
		return "", errors.New("no token source")
	}
	return src.Refresh(ctx, stale)
}
