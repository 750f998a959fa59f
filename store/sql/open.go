// Package sqlstore persists gateway state with bun. Postgres and sqlite are
// supported; the schema comes from the migrations package.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-upstream-gateway/core"
	"github.com/goliatone/go-upstream-gateway/migrations"
	"github.com/goliatone/go-upstream-gateway/ratelimit"
)

const pingTimeout = 5 * time.Second

type persistenceConfig struct {
	driver  string
	server  string
	debug   bool
	otelTag string
}

func (c persistenceConfig) GetDebug() bool                { return c.debug }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return pingTimeout }
func (c persistenceConfig) GetOtelIdentifier() string     { return c.otelTag }

// Open connects to the configured database and applies pending migrations.
func Open(ctx context.Context, cfg core.StoreConfig, serviceName string) (*persistence.Client, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: store dsn is required")
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = core.DefaultStoreDriver
	}
	dialectName, err := migrations.DialectFor(driver)
	if err != nil {
		return nil, err
	}

	var dialect schema.Dialect
	switch dialectName {
	case migrations.DialectPostgres:
		dialect = pgdialect.New()
	default:
		dialect = sqlitedialect.New()
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if dialectName == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{
		driver:  driver,
		server:  dsn,
		debug:   cfg.Debug,
		otelTag: serviceName,
	}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: persistence client: %w", err)
	}

	_, err = migrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(dialectName))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

// NewStateStore builds the throttle state store over an open client, fronted
// by a read-through cache when cacheTTL is positive.
func NewStateStore(client *persistence.Client, cacheTTL time.Duration) (ratelimit.StateStore, error) {
	if client == nil || client.DB() == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	store, err := NewThrottleStateStore(client.DB())
	if err != nil {
		return nil, err
	}
	if cacheTTL <= 0 {
		return store, nil
	}
	cache, err := NewThrottleStateCache(cacheTTL)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: throttle state cache: %w", err)
	}
	return NewCachedThrottleStateStore(store, cache)
}
