// Package store holds the in-memory session state: catalog cache, cart,
// favorites and the authenticated identity. Every mutation is written through
// to durable storage before it returns.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

// Persistence is the durable storage port the stores write through.
type Persistence interface {
	Save(ctx context.Context, snap *domain.Snapshot) error
	SaveToken(ctx context.Context, token string) error
}

type contributor interface {
	contribute(snap *domain.Snapshot)
}

// Persister assembles one snapshot from every registered store and saves it.
type Persister struct {
	mu    sync.Mutex
	port  Persistence
	parts []contributor
	log   *zap.Logger
}

func NewPersister(port Persistence, log *zap.Logger) *Persister {
	return &Persister{port: port, log: log.Named("persister")}
}

func (p *Persister) register(c contributor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parts = append(p.parts, c)
}

// Flush writes the current state of all stores. Callers must not hold a store lock.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := domain.EmptySnapshot()
	for _, part := range p.parts {
		part.contribute(snap)
	}
	if err := p.port.Save(ctx, snap); err != nil {
		p.log.Error("failed to persist session state", zap.Error(err))
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (p *Persister) flushToken(ctx context.Context, token string) error {
	if err := p.port.SaveToken(ctx, token); err != nil {
		p.log.Error("failed to persist token", zap.Error(err))
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}
