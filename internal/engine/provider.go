package engine

import (
	"context"
	"fmt"
	"sync"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/config"
	"github.com/muturi/chatbridge/internal/observability"
)

// Provider owns the shared engine connection for the process. The
// connection is dialed lazily under a mutex so that at most one dial happens
// even when the first callers arrive concurrently; a failed dial is not
// cached, so the next caller retries. The provider is constructed once at
// startup and passed into every component — there is no package-level
// global.
type Provider struct {
	cfg     config.TemporalConfig
	logger  *zap.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	client Client

	// dial is swappable for tests.
	dial func(ctx context.Context) (Client, error)
}

// NewProvider creates a Provider that dials the configured engine address
// and namespace on first use. Clients it hands out report per-call metrics.
func NewProvider(cfg config.TemporalConfig, logger *zap.Logger, metrics *observability.Metrics) *Provider {
	p := &Provider{cfg: cfg, logger: logger, metrics: metrics}
	p.dial = p.dialTemporal
	return p
}

// NewProviderWithDial creates a Provider with a custom dial function,
// letting tests and embedders supply their own client.
func NewProviderWithDial(cfg config.TemporalConfig, logger *zap.Logger, dial func(ctx context.Context) (Client, error)) *Provider {
	return &Provider{cfg: cfg, logger: logger, dial: dial}
}

// Get returns the shared client, dialing it on first use. Repeated calls
// return the same handle for the process lifetime.
func (p *Provider) Get(ctx context.Context) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	c, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: connect %s/%s: %w", p.cfg.HostPort, p.cfg.Namespace, err)
	}
	p.client = c
	p.logger.Info("engine connection established",
		zap.String("host_port", p.cfg.HostPort),
		zap.String("namespace", p.cfg.Namespace),
	)
	return p.client, nil
}

// Close releases the shared connection if it was ever established.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

// HealthCheck reports whether the engine is reachable, dialing if needed.
// Used by the readiness endpoint.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Get(ctx)
	return err
}

func (p *Provider) dialTemporal(_ context.Context) (Client, error) {
	tc, err := client.Dial(client.Options{
		HostPort:  p.cfg.HostPort,
		Namespace: p.cfg.Namespace,
		Logger:    newLogAdapter(p.logger),
	})
	if err != nil {
		return nil, err
	}
	return NewClient(tc, p.logger, p.metrics), nil
}
