package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

// Layer serializes session snapshots onto a Backend.
type Layer struct {
	backend Backend
	log     *zap.Logger

	mu       sync.Mutex
	revision uint64 // last revision this instance loaded or wrote
	now      func() time.Time
}

func NewLayer(backend Backend, log *zap.Logger) *Layer {
	return &Layer{
		backend: backend,
		log:     log,
		now:     time.Now,
	}
}

// Load returns the last saved snapshot. A missing, corrupt or foreign-version
// document yields an empty default; only backend I/O errors are returned.
func (l *Layer) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := l.backend.Get(ctx, StateKey)
	if errors.Is(err, ErrNotFound) {
		return domain.EmptySnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	snap, err := decode(data)
	if err != nil {
		l.log.Warn("discarding persisted state", zap.Error(err))
		return domain.EmptySnapshot(), nil
	}

	l.mu.Lock()
	l.revision = snap.Revision
	l.mu.Unlock()
	return snap, nil
}

// Save stamps snap with the schema version and the next revision and writes it.
func (l *Layer) Save(ctx context.Context, snap *domain.Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.revision
	if stored := l.storedRevision(ctx); stored > l.revision {
		// Another client instance sharing this storage wrote after us. Last writer wins.
		l.log.Warn("persisted state was modified by another writer",
			zap.Uint64("stored_revision", stored),
			zap.Uint64("known_revision", l.revision))
		next = stored
	}
	next++

	doc := *snap
	doc.Version = domain.SnapshotVersion
	doc.Revision = next
	doc.SavedAt = l.now().UTC()

	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := l.backend.Put(ctx, StateKey, data); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	l.revision = next
	snap.Version = doc.Version
	snap.Revision = doc.Revision
	snap.SavedAt = doc.SavedAt
	return nil
}

func (l *Layer) LoadToken(ctx context.Context) (string, error) {
	data, err := l.backend.Get(ctx, TokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return string(data), nil
}

// SaveToken stores token; an empty token removes the stored one.
func (l *Layer) SaveToken(ctx context.Context, token string) error {
	if token == "" {
		if err := l.backend.Delete(ctx, TokenKey); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to delete token: %w", err)
		}
		return nil
	}
	if err := l.backend.Put(ctx, TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (l *Layer) Close() error {
	return l.backend.Close()
}

func (l *Layer) storedRevision(ctx context.Context) uint64 {
	data, err := l.backend.Get(ctx, StateKey)
	if err != nil {
		return 0
	}
	var header struct {
		Revision uint64 `json:"revision"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return 0
	}
	return header.Revision
}

func decode(data []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal state failed: %w", err)
	}
	if snap.Version != domain.SnapshotVersion {
		return nil, fmt.Errorf("unsupported state version %d", snap.Version)
	}
	return &snap, nil
}
