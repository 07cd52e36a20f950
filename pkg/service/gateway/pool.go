package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/banter/pkg/adapter"
	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/banter/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ErrNoCredential is returned by Acquire when no usable backend
// credential exists. The caller skips the affected assistant for the
// turn; it must not abort the others.
var ErrNoCredential = goerr.New("no usable backend credential")

// Source hands out a generator per request. Implemented by Pool;
// usecases depend on this interface so tests can inject mock gateways.
type Source interface {
	Acquire(ctx context.Context) (Generator, error)
}

// KeyStore lists the stored backend credentials
type KeyStore interface {
	ListAPIKeys(ctx context.Context) ([]*model.APIKey, error)
}

// Pool builds one gateway per stored API key and hands them out
// round-robin, spreading rate limits across assistants. The key list is
// re-read after a TTL; a failed refresh keeps the stale set.
type Pool struct {
	keys     KeyStore
	factory  adapter.Factory
	opts     []Option
	ttl      time.Duration
	fallback Generator
	now      func() time.Time

	mu        sync.Mutex
	gateways  []*Gateway
	fetchedAt time.Time
	next      int
}

type PoolOption func(*Pool)

// WithTTL sets how long the key list is cached
func WithTTL(d time.Duration) PoolOption {
	return func(p *Pool) {
		p.ttl = d
	}
}

// WithGatewayOptions applies options to every constructed gateway
func WithGatewayOptions(opts ...Option) PoolOption {
	return func(p *Pool) {
		p.opts = opts
	}
}

// WithFallback sets a generator used when the key store is empty,
// typically one built from a system-level credential
func WithFallback(g Generator) PoolOption {
	return func(p *Pool) {
		p.fallback = g
	}
}

// WithClock overrides the time source for TTL checks
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) {
		p.now = now
	}
}

func NewPool(keys KeyStore, factory adapter.Factory, opts ...PoolOption) *Pool {
	p := &Pool{
		keys:    keys,
		factory: factory,
		ttl:     5 * time.Minute,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Pool) Acquire(ctx context.Context) (Generator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.gateways) == 0 || p.now().Sub(p.fetchedAt) > p.ttl {
		if err := p.refresh(ctx); err != nil {
			// Keep serving stale gateways rather than dropping the turn
			logging.From(ctx).Warn("failed to refresh credential pool", "error", err)
		}
	}

	if len(p.gateways) == 0 {
		if p.fallback != nil {
			logging.From(ctx).Warn("no backend credentials stored, using fallback credential")
			return p.fallback, nil
		}
		return nil, ErrNoCredential
	}

	g := p.gateways[p.next]
	p.next = (p.next + 1) % len(p.gateways)
	return g, nil
}

func (p *Pool) refresh(ctx context.Context) error {
	keys, err := p.keys.ListAPIKeys(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list api keys")
	}

	gateways := make([]*Gateway, 0, len(keys))
	for _, key := range keys {
		gemini, err := p.factory(ctx, key.Secret)
		if err != nil {
			logging.From(ctx).Warn("failed to build client for credential", "key", key.Name, "error", err)
			continue
		}
		gateways = append(gateways, New(gemini, p.opts...))
	}

	p.gateways = gateways
	p.fetchedAt = p.now()
	p.next = 0
	return nil
}
