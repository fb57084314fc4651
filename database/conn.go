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
	"fmt"
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalManager AbstractDatabaseManager
)

// GetDB returns the global Bun database instance, or nil before InitDB.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalManager == nil {
		return nil
	}
	return globalManager.GetDB()
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// InitDB connects the global database, applying DB_* environment overrides,
// and runs migrations when DataMigrateConfig.EnableMigrateOnStartup is set.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	return initDB(ctx, cfg, nil)
}

// InitDBWithSeed is InitDB with seed SQL files read from fsys.
func InitDBWithSeed(ctx context.Context, cfg *Config, fsys fs.FS) (*bun.DB, error) {
	return initDB(ctx, cfg, fsys)
}

func initDB(ctx context.Context, cfg *Config, fsys fs.FS) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if err := ApplyEnvOverrides(&cfg.ConnectionConfig); err != nil {
		return nil, err
	}
	if t := cfg.ConnectionConfig.Type; !slices.Contains(supportedTypes, t) && t != "postgresql" && t != "sqlite3" {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", t, supportedTypes)
	}

	manager := NewDatabaseManagerWithSeed(cfg, fsys)
	if err := manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db := manager.GetDB()
	db.RegisterModel(RegisteredModelInstances()...)

	if cfg.DataMigrateConfig.EnableMigrateOnStartup {
		if err := manager.RunMigrations(ctx); err != nil {
			_ = manager.Disconnect()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	globalMu.Lock()
	previous := globalManager
	globalManager = manager
	globalMu.Unlock()
	if previous != nil {
		_ = previous.Disconnect()
	}
	GetLogger().Info("Database initialization completed!")
	return db, nil
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	manager := globalManager
	globalManager = nil
	globalMu.Unlock()
	if manager == nil {
		return nil
	}
	return manager.Disconnect()
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if manager := GetDatabaseManager(); manager != nil {
		return manager.HealthCheck(ctx)
	}
	return &HealthStatus{
		LastError:     "Database not initialized",
		LastCheckTime: time.Now(),
	}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if manager := GetDatabaseManager(); manager != nil {
		return manager.GetStats()
	}
	return &DBStats{}
}

// InitData seeds the global database from the configured SQL files.
func InitData(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return fmt.Errorf("database not initialized")
	}
	return manager.InitData(ctx)
}
