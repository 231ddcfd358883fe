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
	"os"
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

// Manager owns one root client: connection lifecycle, pooling, health
// checks, and statistics.
type Manager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql pool statistics.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to reach a database and tune its pool.
// DSN, when set, is used verbatim and takes precedence over the host/port
// fields; this is how tests point the root client at in-memory SQLite.
type ConnectionConfig struct {
	Type                string        `yaml:"type"` // mysql, postgres, sqlite
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	Username            string        `yaml:"username"`
	Password            string        `yaml:"password"`
	DBName              string        `yaml:"dbname"`
	SSLMode             string        `yaml:"sslmode"`
	DSN                 string        `yaml:"dsn"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxOpenConns        int           `yaml:"max_open_conns"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime     time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout"`
	ReadTimeout         time.Duration `yaml:"read_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	EnableReconnect     bool          `yaml:"enable_reconnect"`
	ReconnectInterval   time.Duration `yaml:"reconnect_interval"`
	MaxReconnectTries   int           `yaml:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	EnableQueryLog      bool          `yaml:"enable_query_log"`
	SlowQueryTime       time.Duration `yaml:"slow_query_time"`
}

// Options tunes root client initialization.
//
// EagerConnect pings the engine during Init instead of on first use.
// EnableDurabilityOptimization issues an engine-specific relaxed-durability
// setting; it is best effort and never fails initialization.
// AutoMigrate creates tables for all registered models during Init.
type Options struct {
	EagerConnect                 bool `yaml:"eager_connect"`
	EnableDurabilityOptimization bool `yaml:"enable_durability_optimization"`
	AutoMigrate                  bool `yaml:"auto_migrate"`
}

// Config aggregates connection settings and initialization options.
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Options    Options          `yaml:"options"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		SlowQueryTime:       time.Second * 2,
	}
}

func (c *ConnectionConfig) applyDefaults() {
	d := DefaultConnectionConfig()
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = d.MaxOpenConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = d.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = d.ConnMaxIdleTime
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = d.ReconnectInterval
	}
	if c.MaxReconnectTries == 0 {
		c.MaxReconnectTries = d.MaxReconnectTries
	}
	if c.SlowQueryTime == 0 {
		c.SlowQueryTime = d.SlowQueryTime
	}
}

// LoadConfig reads a YAML configuration file into a Config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}
