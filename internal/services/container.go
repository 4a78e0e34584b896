package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/admin"
	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/observability"
	"cuenca-ubate/internal/platform/backend"
	"cuenca-ubate/internal/platform/cache"
	"cuenca-ubate/internal/platform/database"
	"cuenca-ubate/internal/platform/emailjs"
	"cuenca-ubate/internal/platform/notify"
	"cuenca-ubate/internal/platform/plantnet"
	"cuenca-ubate/internal/platform/storage"
	"cuenca-ubate/internal/platform/supabase"
	"cuenca-ubate/internal/services/implementations"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Infrastructure are the connections opened by main. DB and Redis may be nil.
type Infrastructure struct {
	DB      *sql.DB
	Redis   *cache.RedisClient
	Storage *storage.MinIOClient
}

// Container holds all the application dependencies
type Container struct {
	config *config.Config
	logger *observability.Logger
	infra  Infrastructure

	backend *backend.Client
	sender  notification.Sender

	catalog        *implementations.CatalogService
	moderation     *implementations.ModerationService
	subscriptions  *implementations.SubscriptionService
	broadcaster    *implementations.BroadcastService
	keys           *implementations.KeyProvider
	identification *implementations.IdentificationService
	admin          *implementations.AdminService

	health map[string]HealthCheck
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, infra Infrastructure, logger *observability.Logger) (*Container, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if infra.Storage == nil {
		return nil, errors.New("object storage client is required")
	}

	c := &Container{
		config: cfg,
		logger: logger,
		infra:  infra,
		health: map[string]HealthCheck{},
	}

	if err := c.initializeServices(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// initializeServices wires the services in dependency order
func (c *Container) initializeServices(ctx context.Context) error {
	cfg := c.config

	c.backend = backend.NewClient(cfg.Backend, nil)
	c.health["backend"] = c.backend.Health
	c.health["storage"] = c.infra.Storage.Health

	shared := implementations.NewCacheService(c.infra.Redis)
	if shared.Enabled() {
		c.health["cache"] = shared.Health
	}
	if c.infra.DB != nil {
		c.health["database"] = c.infra.DB.PingContext
	}

	sender, err := c.newSender()
	if err != nil {
		return err
	}
	c.sender = sender

	// Catalog and moderation
	var snapshots gallery.SnapshotCache
	if shared.Enabled() {
		snapshots = shared
	}
	c.catalog = implementations.NewCatalogService(c.backend, snapshots, cfg.Backend.CatalogTTL, c.logger)
	c.moderation = implementations.NewModerationService(c.backend, c.catalog, c.logger)

	// Subscribers and notifications
	var mirror subscriber.Mirror
	if c.infra.DB != nil {
		mirror = database.NewMirrorRepository(c.infra.DB)
	}
	c.subscriptions = implementations.NewSubscriptionService(c.backend, mirror, c.sender, c.logger)
	dispatcher := implementations.NewNotificationDispatcher(c.sender, cfg.Notify.Interval, cfg.Notify.Concurrency, c.logger)
	c.broadcaster = implementations.NewBroadcastService(c.backend, dispatcher, time.Hour, c.logger)

	// Identification
	c.keys = implementations.NewKeyProvider(c.backend, cfg.PlantNet.KeysTTL)
	var flows identification.FlowStore = implementations.NewMemoryFlowStore(cfg.Cache.FlowTTL)
	if c.infra.Redis != nil {
		flows = cache.NewFlowStore(c.infra.Redis, cfg.Cache.FlowTTL)
	}
	var plants identification.SavedPlantRepository
	if c.infra.DB != nil {
		plants = database.NewSavedPlantRepository(c.infra.DB)
	}
	c.identification = implementations.NewIdentificationService(implementations.IdentificationDeps{
		Flows:      flows,
		Photos:     c.infra.Storage,
		Identifier: plantnet.NewClient(cfg.PlantNet, c.keys, nil),
		Uploader:   c.backend,
		Plants:     plants,
		Processor:  storage.NewImageProcessor(0, 0, 0),
		Logger:     c.logger,
	})

	// Admin
	auth, err := c.newAuthenticator(ctx)
	if err != nil {
		return err
	}
	c.admin = implementations.NewAdminService(auth, c.sender, cfg.Auth.AdminEmail, cfg.Notify.SupportContact, c.logger)

	c.logger.Info(ctx).
		Bool("database", c.infra.DB != nil).
		Bool("cache", shared.Enabled()).
		Str("transport", cfg.Notify.Transport).
		Str("auth", cfg.Auth.Provider).
		Msg("Dependency injection container initialized successfully")
	return nil
}

func (c *Container) newSender() (notification.Sender, error) {
	if c.config.Notify.Transport == config.TransportShoutrrr {
		sender, err := notify.NewShoutrrrSender(c.config.Notify.ShoutrrrURL, c.config.Email.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create notification sender: %w", err)
		}
		return sender, nil
	}
	return emailjs.NewSender(c.config.Email, nil), nil
}

func (c *Container) newAuthenticator(ctx context.Context) (admin.Authenticator, error) {
	if c.config.Auth.Provider != config.AuthLocal {
		return supabase.NewAuthenticator(c.config.Auth, nil), nil
	}
	if c.infra.DB == nil {
		return nil, errors.New("local admin authentication requires DATABASE_URL")
	}

	local := implementations.NewLocalAuthenticator(database.NewAdminUserRepository(c.infra.DB))
	created, err := local.Bootstrap(ctx, c.config.Auth.BootstrapUser, c.config.Auth.BootstrapPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap admin user: %w", err)
	}
	if created {
		c.logger.Info(ctx).Str("username", c.config.Auth.BootstrapUser).Msg("Created initial admin user")
	}
	return local, nil
}

// Getters for accessing services

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Logger() *observability.Logger {
	return c.logger
}

func (c *Container) Catalog() gallery.CatalogService {
	return c.catalog
}

func (c *Container) Moderation() moderation.Service {
	return c.moderation
}

func (c *Container) Subscriptions() subscriber.Service {
	return c.subscriptions
}

func (c *Container) Broadcaster() notification.Broadcaster {
	return c.broadcaster
}

func (c *Container) Identification() identification.Service {
	return c.identification
}

func (c *Container) Admin() admin.Service {
	return c.admin
}

// HealthChecks returns the readiness check of every configured dependency
func (c *Container) HealthChecks() map[string]HealthCheck {
	return c.health
}

// Close stops background work and releases connections
func (c *Container) Close() error {
	c.broadcaster.Close()

	var errs []error
	if c.infra.Redis != nil {
		errs = append(errs, c.infra.Redis.Close())
	}
	if c.infra.DB != nil {
		errs = append(errs, c.infra.DB.Close())
	}
	return errors.Join(errs...)
}
