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
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type rootClientManager struct {
	config          *Config
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	reconnectTries  int
	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once
}

// NewManager returns a Manager for the root client described by config.
// A nil config gets default connection settings.
func NewManager(config *Config) Manager {
	if config == nil {
		config = &Config{Connection: *DefaultConnectionConfig()}
	}
	config.Connection.applyDefaults()
	return &rootClientManager{
		config:          config,
		stopHealthCheck: make(chan struct{}),
	}
}

func (dm *rootClientManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}

	var err error
	dm.sqlDB, dm.db, err = dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	dm.configureConnectionPool()

	if dm.config.Options.EagerConnect {
		ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.Connection.ConnectTimeout)
		defer cancel()
		if err := dm.db.PingContext(ctxTimeout); err != nil {
			dm.lastError = err
			return fmt.Errorf("database connection test failed: %w", err)
		}
	}

	if dm.config.Options.EnableDurabilityOptimization {
		dm.applyDurabilityOptimization(ctx)
	}

	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0

	if dm.config.Connection.HealthCheckInterval > 0 {
		dm.startHealthCheck()
	}

	if dm.logger != nil {
		dm.logger.Info("Database connected:", "type", dm.config.Connection.Type, "host", dm.config.Connection.Host)
	}
	return nil
}

func (dm *rootClientManager) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	switch dm.config.Connection.Type {
	case "mysql":
		sqlDB, db, err = dm.createMySQLConnection()
	case "postgres", "postgresql":
		sqlDB, db, err = dm.createPostgreSQLConnection()
	case "sqlite", "sqlite3":
		sqlDB, db, err = dm.createSQLiteConnection()
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", dm.config.Connection.Type)
	}

	if err != nil {
		return nil, nil, err
	}

	if dm.config.Connection.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
		db.AddQueryHook(NewQueryHook("AMBIENT_QUERY_LOG"))
	}

	if dm.config.Connection.SlowQueryTime > 0 {
		db.AddQueryHook(&SlowQueryHook{
			slowTime: dm.config.Connection.SlowQueryTime,
			logger:   dm.logger,
		})
	}

	return sqlDB, db, nil
}

func (dm *rootClientManager) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	c := dm.config.Connection
	dsn := c.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
			c.Username, c.Password, c.Host, c.Port, c.DBName,
			c.ConnectTimeout, c.ReadTimeout, c.WriteTimeout,
		)
	}

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

func (dm *rootClientManager) createPostgreSQLConnection() (*sql.DB, *bun.DB, error) {
	c := dm.config.Connection
	dsn := c.DSN
	if dsn == "" {
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
			c.Username, c.Password, c.Host, c.Port, c.DBName,
			sslMode, int(c.ConnectTimeout.Seconds()),
		)
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

func (dm *rootClientManager) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	c := dm.config.Connection
	dsn := c.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("%s.db", c.DBName)
	}

	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// applyDurabilityOptimization issues the engine's relaxed-durability
// setting. Failures are logged and never abort initialization.
func (dm *rootClientManager) applyDurabilityOptimization(ctx context.Context) {
	var statements []string
	switch dm.config.Connection.Type {
	case "sqlite", "sqlite3":
		statements = []string{"PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL"}
	case "postgres", "postgresql":
		statements = []string{"SET synchronous_commit = off"}
	case "mysql":
		statements = []string{"SET GLOBAL innodb_flush_log_at_trx_commit = 2"}
	}

	for _, stmt := range statements {
		if _, err := dm.db.ExecContext(ctx, stmt); err != nil {
			if dm.logger != nil {
				dm.logger.Warn("Durability optimization not applied", "statement", stmt, "error", err)
			}
			continue
		}
		if dm.logger != nil {
			dm.logger.Debug("Durability optimization applied", "statement", stmt)
		}
	}
}

func (dm *rootClientManager) configureConnectionPool() {
	if dm.sqlDB == nil {
		return
	}
	c := dm.config.Connection
	dm.sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	dm.sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	dm.sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	dm.sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)
}

func (dm *rootClientManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	select {
	case dm.stopHealthCheck <- struct{}{}:
	default:
	}

	if dm.db == nil {
		return nil
	}

	err := dm.db.Close()
	dm.db = nil
	dm.sqlDB = nil
	dm.connected = false

	if dm.logger != nil {
		if err != nil {
			dm.logger.Error("Failed to close database connection", "error", err)
		} else {
			dm.logger.Info("Database connection closed")
		}
	}
	return err
}

func (dm *rootClientManager) reconnect(ctx context.Context) error {
	if dm.logger != nil {
		dm.logger.Info("Attempting to reconnect to the database")
	}
	if err := dm.Disconnect(); err != nil && dm.logger != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.Connect(ctx)
}

func (dm *rootClientManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	db := dm.db
	dm.mu.RUnlock()

	if db == nil {
		return ErrNotInitialized
	}
	return db.PingContext(ctx)
}

func (dm *rootClientManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *rootClientManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *rootClientManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     dm.connected,
	}

	if dm.db == nil {
		status.Healthy = false
		status.LastError = ErrNotInitialized.Error()
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := dm.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = err.Error()
		dm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		dm.lastError = nil
	}

	if dm.sqlDB != nil {
		stats := dm.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}
	return status
}

func (dm *rootClientManager) startHealthCheck() {
	dm.healthCheckOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(dm.config.Connection.HealthCheckInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
					status := dm.HealthCheck(ctx)
					cancel()
					if !status.Healthy && dm.config.Connection.EnableReconnect {
						dm.handleReconnect()
					}
				case <-dm.stopHealthCheck:
					return
				}
			}
		}()
	})
}

func (dm *rootClientManager) handleReconnect() {
	if dm.reconnectTries >= dm.config.Connection.MaxReconnectTries {
		if dm.logger != nil {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", dm.reconnectTries)
		}
		return
	}

	dm.reconnectTries++
	if dm.logger != nil {
		dm.logger.Info("Starting database reconnect", "try", dm.reconnectTries)
	}

	time.Sleep(dm.config.Connection.ReconnectInterval)

	ctx, cancel := context.WithTimeout(context.Background(), dm.config.Connection.ConnectTimeout)
	defer cancel()

	if err := dm.reconnect(ctx); err != nil {
		if dm.logger != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", dm.reconnectTries)
		}
	} else {
		dm.reconnectTries = 0
		if dm.logger != nil {
			dm.logger.Info("Reconnect succeeded")
		}
	}
}

func (dm *rootClientManager) GetStats() *DBStats {
	dm.mu.RLock()
	sqlDB := dm.sqlDB
	dm.mu.RUnlock()

	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *rootClientManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
