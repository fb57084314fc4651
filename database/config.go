/*
 * Copyright 2025 tomoncle.
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
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, running migrations, seeding data, and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	LastHealthStatus() *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	RunMigrations(ctx context.Context) error
	InitData(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	Dialect       string        `json:"dialect,omitempty"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
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

// ConnectionConfig describes how to connect to a database and tune its pool.
// Fields with an envconfig tag can be overridden by ApplyEnvOverrides.
type ConnectionConfig struct {
	Type                string        `json:"type" yaml:"type" envconfig:"DB_TYPE"` // postgres, mysql, sqlite
	Host                string        `json:"host" yaml:"host" envconfig:"DB_HOST"`
	Port                int           `json:"port" yaml:"port" envconfig:"DB_PORT"`
	Username            string        `json:"username" yaml:"username" envconfig:"DB_USERNAME"`
	Password            string        `json:"-" yaml:"password" envconfig:"DB_PASSWORD"`
	DBName              string        `json:"dbname" yaml:"dbname" envconfig:"DB_NAME"`
	SSLMode             string        `json:"sslmode" yaml:"sslmode" envconfig:"DB_SSLMODE"`
	InMemory            bool          `json:"in_memory" yaml:"in_memory" ignored:"true"` // sqlite only
	MaxIdleConns        int           `json:"max_idle_conns" yaml:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS"`
	MaxOpenConns        int           `json:"max_open_conns" yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	ConnMaxLifetime     time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" envconfig:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime     time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time" envconfig:"DB_CONN_MAX_IDLE_TIME"`
	ConnectTimeout      time.Duration `json:"connect_timeout" yaml:"connect_timeout" envconfig:"DB_CONNECT_TIMEOUT"`
	ReadTimeout         time.Duration `json:"read_timeout" yaml:"read_timeout" ignored:"true"`
	WriteTimeout        time.Duration `json:"write_timeout" yaml:"write_timeout" ignored:"true"`
	EnableQueryLog      bool          `json:"enable_query_log" yaml:"enable_query_log" envconfig:"DB_ENABLE_QUERY_LOG"`
	SlowQueryTime       time.Duration `json:"slow_query_time" yaml:"slow_query_time" envconfig:"DB_SLOW_QUERY_TIME"`
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval" envconfig:"DB_HEALTH_CHECK_INTERVAL"` // 0 disables the background check
	EnableReconnect     bool          `json:"enable_reconnect" yaml:"enable_reconnect" envconfig:"DB_ENABLE_RECONNECT"`
	MaxReconnectTries   int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries" envconfig:"DB_MAX_RECONNECT_TRIES"`
	ReconnectInterval   time.Duration `json:"reconnect_interval" yaml:"reconnect_interval" envconfig:"DB_RECONNECT_INTERVAL"`
}

// DataMigrateConfig controls schema migration behavior on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool `json:"enable_migrate_on_startup" yaml:"enable_migrate_on_startup"`
	EnableForeignKey       bool `json:"enable_foreign_key" yaml:"enable_foreign_key"`
}

// DataInitConfig controls data seeding behavior and environment selection.
type DataInitConfig struct {
	AutoInitOnMigration bool   `json:"auto_init_on_migration" yaml:"auto_init_on_migration"`
	Filepath            string `json:"filepath" yaml:"filepath"`
	Environment         string `json:"environment" yaml:"environment"`
}

// Config aggregates connection, migration, and data initialization settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `json:"connection_config" yaml:"connection"`
	DataMigrateConfig DataMigrateConfig `json:"data_migrate_config" yaml:"migrate"`
	DataInitConfig    DataInitConfig    `json:"data_init_config" yaml:"init"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Type:              "sqlite",
		DBName:            "querystudy",
		MaxIdleConns:      10,
		MaxOpenConns:      100,
		ConnMaxLifetime:   time.Hour,
		ConnMaxIdleTime:   time.Minute * 30,
		ConnectTimeout:    time.Second * 10,
		ReadTimeout:       time.Second * 30,
		WriteTimeout:      time.Second * 30,
		SlowQueryTime:     time.Second * 2,
		MaxReconnectTries: 3,
		ReconnectInterval: time.Second * 5,
	}
}

// DefaultConfig returns a Config that migrates on startup and seeds the
// "local" environment from configs/sql.
func DefaultConfig() *Config {
	return &Config{
		ConnectionConfig: *DefaultConnectionConfig(),
		DataMigrateConfig: DataMigrateConfig{
			EnableMigrateOnStartup: true,
			EnableForeignKey:       true,
		},
		DataInitConfig: DataInitConfig{
			Filepath:    "configs/sql",
			Environment: "local",
		},
	}
}
