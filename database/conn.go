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
	"sync"

	"github.com/uptrace/bun"
)

// The root client is process-wide: created once by Init, shared by all
// code not currently inside a unit of work, torn down once by Close.
var (
	globalMu      sync.RWMutex
	globalFactory *Factory
	globalConfig  *Config
)

// Init establishes the root client from the given configuration. Call it
// once at process start, before any repository or transaction use.
func Init(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	factory := NewFactory()
	manager, err := factory.CreateFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	ctx := context.Background()
	if err := factory.InitializeDatabase(ctx, cfg.Options.AutoMigrate); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db := manager.GetDB()

	globalMu.Lock()
	globalFactory = factory
	globalConfig = cfg
	globalMu.Unlock()

	return db, nil
}

// GetDB returns the root client, or nil before Init.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetDB()
}

// GetManager returns the root client's manager, or nil before Init.
func GetManager() Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetManager()
}

// Close releases the root client's connectivity. Calling it twice surfaces
// whatever the engine reports; no idempotency is added here.
func Close() error {
	globalMu.Lock()
	factory := globalFactory
	globalFactory = nil
	globalConfig = nil
	globalMu.Unlock()

	if factory == nil {
		return ErrNotInitialized
	}
	return factory.Close()
}

// GetHealthStatus returns the current root client health.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if m := GetManager(); m != nil {
		return m.HealthCheck(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: ErrNotInitialized.Error(),
	}
}

// GetStats returns root client pool statistics.
func GetStats() *DBStats {
	if m := GetManager(); m != nil {
		return m.GetStats()
	}
	return &DBStats{}
}
