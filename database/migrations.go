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
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager coordinates schema migrations and data initialization.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
	config *Config
	seedFS fs.FS
}

// Migration is an applied migration record.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// NewMigrationManager builds a MigrationManager. A nil config means
// DefaultConfig.
func NewMigrationManager(db *bun.DB, logger Logger, config *Config) *MigrationManager {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	mm := &MigrationManager{db: db, logger: logger, config: config}
	if p := config.DataInitConfig.Filepath; p != "" {
		mm.seedFS = os.DirFS(p)
	}
	return mm
}

// SetSeedFS sets where seed SQL files are read from.
func (mm *MigrationManager) SetSeedFS(fsys fs.FS) {
	mm.seedFS = fsys
}

// RunMigrations creates the bookkeeping table if needed and applies every
// pending migration in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := mm.migrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for _, m := range migrations {
		if err := mm.runMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}
	}
	mm.logger.Info("Database migrations completed!")
	return nil
}

func (mm *MigrationManager) migrations() []MigrationItem {
	items := []MigrationItem{{
		Version:     "001",
		Name:        "create_base_tables",
		Description: "Create team and member tables",
		Up:          mm.createBaseTables,
	}}
	if mm.config.DataInitConfig.AutoInitOnMigration {
		items = append(items, MigrationItem{
			Version:     "002",
			Name:        "seed_initial_data",
			Description: "Seed initial data",
			Up:          mm.seedInitialData,
		})
	}
	return items
}

func (mm *MigrationManager) runMigration(ctx context.Context, m MigrationItem) error {
	applied, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", m.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if applied {
		mm.logger.Debug("Migration already applied", "version", m.Version)
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := m.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&Migration{
			Version:     m.Version,
			Name:        m.Name,
			AppliedAt:   time.Now(),
			Description: m.Description,
		}).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	mm.logger.Info("Migration executed successfully", "version", m.Version, "name", m.Name)
	return nil
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		q := db.NewCreateTable().Model(model).IfNotExists()
		if mm.config.DataMigrateConfig.EnableForeignKey {
			q = q.WithForeignKeys()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	return mm.seed(ctx, db)
}

// InitData seeds data outside of the migration bookkeeping.
func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return mm.seed(ctx, mm.db)
}

func (mm *MigrationManager) seed(ctx context.Context, db bun.IDB) error {
	if mm.seedFS == nil {
		mm.logger.Warn("No seed source configured, skipping data initialization")
		return nil
	}
	env := mm.config.DataInitConfig.Environment
	if env == "" {
		env = "prod"
	}
	if err := NewSQLInitManager(mm.seedFS, env, mm.logger).ExecuteInitialization(ctx, db); err != nil {
		return fmt.Errorf("SQL file initialization failed: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}
