/*
 * Copyright 2025 tidegate.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// Factory validates configuration, applies environment overrides, and
// builds the root client manager.
type Factory struct {
	manager Manager
	logger  Logger
}

func NewFactory() *Factory {
	return &Factory{logger: GetLogger()}
}

// CreateFromConfig constructs a Manager from the given configuration.
func (f *Factory) CreateFromConfig(cfg *Config) (Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	switch cfg.Connection.Type {
	case "mysql", "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported database type: %s, supported types: [mysql postgres sqlite]", cfg.Connection.Type)
	}

	f.overrideFromEnv(&cfg.Connection)

	manager := NewManager(cfg)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

func (f *Factory) overrideFromEnv(cfg *ConnectionConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if username := os.Getenv("DB_USERNAME"); username != "" {
		cfg.Username = username
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DSN = dsn
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.SSLMode = sslmode
	}
	if maxIdle := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil {
			cfg.MaxIdleConns = val
		}
	}
	if maxOpen := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil {
			cfg.MaxOpenConns = val
		}
	}
	if maxLifetime := os.Getenv("DB_CONN_MAX_LIFETIME"); maxLifetime != "" {
		if val, err := strconv.Atoi(maxLifetime); err == nil {
			cfg.ConnMaxLifetime = time.Duration(val) * time.Second
		}
	}
	if enableReconnect := os.Getenv("DB_ENABLE_RECONNECT"); enableReconnect != "" {
		cfg.EnableReconnect = enableReconnect == "true"
	}
	if enableQueryLog := os.Getenv("DB_ENABLE_QUERY_LOG"); enableQueryLog != "" {
		cfg.EnableQueryLog = enableQueryLog == "true"
	}
}

// InitializeDatabase connects the manager and optionally creates tables
// for registered models.
func (f *Factory) InitializeDatabase(ctx context.Context, autoMigrate bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}

	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if autoMigrate {
		mm := NewMigrationManager(f.manager.GetDB(), f.logger)
		if err := mm.CreateTables(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	f.logger.Info("Database initialization completed")
	return nil
}

// GetManager returns the underlying manager, or nil before CreateFromConfig.
func (f *Factory) GetManager() Manager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *Factory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *Factory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the connection managed by the factory.
func (f *Factory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}
