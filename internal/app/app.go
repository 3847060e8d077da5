// Package app wires the storefront session together: durable storage is
// loaded first, then the stores are built from it and connected to the
// backend, payment processor and event publisher.
package app

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/persistence"
	"github.com/fjod/go_cart/storefront/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Catalog   *store.Catalog
	Cart      *store.Cart
	Favorites *store.Favorites
	Auth      *store.Auth
	Checkout  *checkout.Orchestrator

	layer     *persistence.Layer
	publisher events.Publisher
	log       *zap.Logger
}

// New opens the configured storage backend and builds the app on top of it.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	backend, err := OpenBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a, err := Build(ctx, cfg, backend, log)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return a, nil
}

// Build hydrates every store from backend before any of them is used.
func Build(ctx context.Context, cfg *config.Config, backend persistence.Backend, log *zap.Logger) (*App, error) {
	layer := persistence.NewLayer(backend, log.Named("persistence"))

	snap, err := layer.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session state: %w", err)
	}
	token, err := layer.LoadToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session token: %w", err)
	}

	api := gateway.New(gateway.Options{
		BaseURL:     cfg.APIURL,
		Timeout:     cfg.RequestTimeout,
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
		Logger:      log,
	})
	processor := payment.New(payment.Options{
		BaseURL:        cfg.PaymentURL,
		PublishableKey: cfg.PaymentKey,
		Timeout:        cfg.RequestTimeout,
		Logger:         log,
	})
	publisher := NewPublisher(cfg.Events, log)

	persist := store.NewPersister(layer, log)
	auth := store.NewAuth(api, persist, log)
	auth.Hydrate(token, snap.User)
	catalog := store.NewCatalog(snap.Products, api, auth, persist)
	cart := store.NewCart(snap.Cart, persist)
	favs := snap.Favorites
	if !auth.IsAuthenticated() {
		favs = nil
	}
	favorites := store.NewFavorites(favs, api, auth, persist)
	auth.OnSignOut(favorites.Reset)

	log.Info("session restored",
		zap.Uint64("revision", snap.Revision),
		zap.Bool("signed_in", auth.IsAuthenticated()),
		zap.Int("cart_lines", len(snap.Cart)),
		zap.Int("cached_products", len(snap.Products)),
	)

	return &App{
		Catalog:   catalog,
		Cart:      cart,
		Favorites: favorites,
		Auth:      auth,
		Checkout:  checkout.NewOrchestrator(cart, auth, api, processor, publisher, log),
		layer:     layer,
		publisher: publisher,
		log:       log,
	}, nil
}

// OpenBackend opens the durable storage selected by cfg.Driver.
func OpenBackend(ctx context.Context, cfg config.Storage) (persistence.Backend, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return persistence.NewMemoryBackend(), nil
	case config.StorageBolt:
		b, err := persistence.OpenBoltBackend(cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.StorageSQLite:
		b, err := persistence.OpenSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return persistence.NewRedisBackend(client, cfg.Namespace), nil
	case config.StorageMongo:
		db, err := persistence.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		return persistence.NewMongoBackend(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func NewPublisher(cfg config.Events, log *zap.Logger) events.Publisher {
	if cfg.Driver == config.EventsKafka {
		return events.NewKafkaPublisher(cfg.Topic, log, cfg.Brokers...)
	}
	return events.NewLogPublisher(log)
}

func (a *App) Close() error {
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("failed to close event publisher", zap.Error(err))
	}
	return a.layer.Close()
}
