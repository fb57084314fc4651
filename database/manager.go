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
	"fmt"
	"io/fs"
	"os"
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

var supportedTypes = []string{"mysql", "postgres", "sqlite"}

type defaultDatabaseManager struct {
	config     *Config
	db         *bun.DB
	sqlDB      *sql.DB
	logger     Logger
	seedFS     fs.FS
	mu         sync.RWMutex
	connected  bool
	lastStatus *HealthStatus

	// background health check, see startHealthCheck
	stopHealth     chan struct{}
	healthDone     chan struct{}
	reconnectTries int
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun. A nil
// config falls back to DefaultConfig.
func NewDatabaseManager(config *Config) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConfig()
	}
	return &defaultDatabaseManager{
		config: config,
		logger: GetLogger(),
	}
}

// NewDatabaseManagerWithSeed is NewDatabaseManager with the SQL seed files
// read from fsys instead of DataInitConfig.Filepath.
func NewDatabaseManagerWithSeed(config *Config, fsys fs.FS) AbstractDatabaseManager {
	dm := NewDatabaseManager(config).(*defaultDatabaseManager)
	dm.seedFS = fsys
	return dm
}

// Connect opens the connection and, when HealthCheckInterval is set, starts
// the background health check. Disconnect stops it.
func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	if err := dm.connect(ctx); err != nil {
		return err
	}
	dm.startHealthCheck()
	return nil
}

func (dm *defaultDatabaseManager) connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}

	cfg := &dm.config.ConnectionConfig
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	sqlDB, db, err := dm.open(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	dm.configurePool(cfg, sqlDB)
	dm.addHooks(cfg, db)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.sqlDB, dm.db, dm.connected = sqlDB, db, true
	dm.logger.Info("Database connected", "type", cfg.Type, "host", cfg.Host, "dbname", cfg.DBName)
	return nil
}

func (dm *defaultDatabaseManager) open(cfg *ConnectionConfig) (*sql.DB, *bun.DB, error) {
	switch cfg.Type {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
			cfg.ConnectTimeout, cfg.ReadTimeout, cfg.WriteTimeout)
		sqlDB, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
	case "postgres", "postgresql":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
			sslMode, int(cfg.ConnectTimeout.Seconds()))
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
	case "sqlite", "sqlite3":
		sqlDB, err := sql.Open(sqliteshim.ShimName, sqliteDSN(cfg))
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypes)
	}
}

func sqliteDSN(cfg *ConnectionConfig) string {
	if cfg.InMemory {
		return fmt.Sprintf("file:%s?mode=memory&cache=shared", cfg.DBName)
	}
	return fmt.Sprintf("%s.db", cfg.DBName)
}

func (dm *defaultDatabaseManager) configurePool(cfg *ConnectionConfig, sqlDB *sql.DB) {
	// An in-memory sqlite database lives as long as one of its connections.
	if cfg.InMemory {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func (dm *defaultDatabaseManager) addHooks(cfg *ConnectionConfig, db *bun.DB) {
	if cfg.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	} else {
		db.AddQueryHook(&QueryHook{Writer: os.Stderr})
	}
	if cfg.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: cfg.SlowQueryTime, logger: dm.logger})
	}
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.stopHealthCheck()
	return dm.closeConn()
}

// Reconnect closes the current connection and opens a new one. The
// background health check keeps running.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.logger.Info("Attempting to reconnect to the database")
	if err := dm.closeConn(); err != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.connect(ctx)
}

func (dm *defaultDatabaseManager) closeConn() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB, dm.connected = nil, nil, false
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	dm.logger.Info("Database connection closed")
	return nil
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	dm.mu.RLock()
	db, sqlDB, connected := dm.db, dm.sqlDB, dm.connected
	dm.mu.RUnlock()

	status := &HealthStatus{LastCheckTime: start, Connected: connected}
	defer dm.recordStatus(status)
	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}
	status.Dialect = db.Dialect().Name().String()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
	} else {
		status.Healthy = true
	}

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (dm *defaultDatabaseManager) recordStatus(status *HealthStatus) {
	dm.mu.Lock()
	dm.lastStatus = status
	dm.mu.Unlock()
}

// LastHealthStatus returns a copy of the latest HealthCheck result, or nil
// before the first check.
func (dm *defaultDatabaseManager) LastHealthStatus() *HealthStatus {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.lastStatus == nil {
		return nil
	}
	status := *dm.lastStatus
	return &status
}

func (dm *defaultDatabaseManager) startHealthCheck() {
	interval := dm.config.ConnectionConfig.HealthCheckInterval
	if interval <= 0 {
		return
	}
	dm.mu.Lock()
	if dm.stopHealth != nil {
		dm.mu.Unlock()
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	dm.stopHealth, dm.healthDone = stop, done
	dm.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				status := dm.HealthCheck(ctx)
				cancel()
				if status.Healthy {
					dm.reconnectTries = 0
				} else if dm.config.ConnectionConfig.EnableReconnect {
					dm.handleReconnect(stop)
				}
			}
		}
	}()
}

// stopHealthCheck stops the background health check and waits for it to
// return.
func (dm *defaultDatabaseManager) stopHealthCheck() {
	dm.mu.Lock()
	stop, done := dm.stopHealth, dm.healthDone
	dm.stopHealth, dm.healthDone = nil, nil
	dm.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

// handleReconnect runs on the health check goroutine only.
func (dm *defaultDatabaseManager) handleReconnect(stop <-chan struct{}) {
	cfg := &dm.config.ConnectionConfig
	if dm.reconnectTries >= cfg.MaxReconnectTries {
		if dm.reconnectTries == cfg.MaxReconnectTries {
			dm.logger.Error("Max reconnect attempts reached, giving up", "tries", dm.reconnectTries)
			dm.reconnectTries++
		}
		return
	}
	dm.reconnectTries++
	dm.logger.Info("Starting database reconnect", "try", dm.reconnectTries)

	select {
	case <-stop:
		return
	case <-time.After(cfg.ReconnectInterval):
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := dm.Reconnect(ctx); err != nil {
		dm.logger.Error("Reconnect failed", "error", err, "try", dm.reconnectTries)
		return
	}
	dm.reconnectTries = 0
	dm.logger.Info("Reconnect succeeded")
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
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

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return dm.migrationManager(db).RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) InitData(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return dm.migrationManager(db).InitData(ctx)
}

func (dm *defaultDatabaseManager) migrationManager(db *bun.DB) *MigrationManager {
	mm := NewMigrationManager(db, dm.logger, dm.config)
	if dm.seedFS != nil {
		mm.SetSeedFS(dm.seedFS)
	}
	return mm
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
