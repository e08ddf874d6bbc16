// Package bootstrap opens the shared resources the commands start from.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/formsync/internal/config"
	"github.com/ignite/formsync/internal/formconfig"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/repository/postgres"
)

// SetupLogging applies the logging section to the package logger.
func SetupLogging(cfg config.LoggingConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.RedactEnabled())
}

// OpenDB connects to Postgres and verifies the connection.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", DSNHost(cfg.URL), err)
	}
	logger.Info("bootstrap: connected to database", "host", DSNHost(cfg.URL))
	return db, nil
}

// OpenRedis connects to Redis when an address is configured. It returns nil
// when Redis is not configured or unreachable; locks then fall back to
// Postgres advisory locks.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("bootstrap: redis not configured, using postgres advisory locks")
		return nil
	}

	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.Addr); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("bootstrap: redis unreachable, using postgres advisory locks", "addr", cfg.Addr, "error", err)
		client.Close()
		return nil
	}
	logger.Info("bootstrap: redis connected", "addr", cfg.Addr)
	return client
}

// FormSource builds the configured form settings backend. db may be nil
// for the static source.
func FormSource(cfg *config.Config, db *sql.DB) (formconfig.Source, error) {
	switch cfg.FormSource {
	case config.FormSourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("form source postgres needs a database")
		}
		return postgres.NewFormSettingsRepo(db), nil
	case config.FormSourceStatic, "":
		src, err := formconfig.NewStatic(cfg.Forms)
		if err != nil {
			return nil, err
		}
		if src.Len() == 0 {
			logger.Warn("bootstrap: no forms configured, every submission will be rejected")
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown form source %q", cfg.FormSource)
	}
}

// DSNHost returns the host part of a postgres URL for logging, without
// credentials.
func DSNHost(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}
