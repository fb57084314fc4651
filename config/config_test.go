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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.ConnectionConfig.Type)
	assert.Equal(t, "local", cfg.Database.DataInitConfig.Environment)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
env: dev
server:
  addr: ":9090"
  mode: debug
  shutdown_timeout: 3s
log:
  level: debug
  format: json
database:
  connection:
    type: postgres
    host: db.local
    port: 5432
    dbname: members
  init:
    auto_init_on_migration: true
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "postgres", cfg.Database.ConnectionConfig.Type)
	assert.Equal(t, "db.local", cfg.Database.ConnectionConfig.Host)
	assert.Equal(t, "members", cfg.Database.ConnectionConfig.DBName)
	assert.True(t, cfg.Database.DataInitConfig.AutoInitOnMigration)
	assert.True(t, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)
	assert.Equal(t, "local", cfg.Database.DataInitConfig.Environment)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "server:\n  addr: \":9090\"\n")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DB_NAME", "fromenv")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "fromenv", cfg.Database.ConnectionConfig.DBName)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "APP_ENV=staging\nGIN_MODE=test\n")
	t.Setenv("GIN_MODE", "debug")
	t.Cleanup(func() { _ = os.Unsetenv("APP_ENV") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "debug", cfg.Server.Mode)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "config.yaml", "log:\n  format: xml\n")
	_, err := Load(path, "")
	assert.ErrorContains(t, err, "invalid config")

	_, err = Load(writeFile(t, "broken.yaml", "server: ["), "")
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_InvalidDatabaseEnv(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	_, err := Load("", "")
	assert.ErrorContains(t, err, "DB_MAX_OPEN_CONNS")
}

func TestLoad_FileLog(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	_, enabled := cfg.Log.FileLog()
	assert.False(t, enabled)

	path := writeFile(t, "config.yaml", "log:\n  dir: /var/log/querystudy\n  max_age_days: 3\n  file_format: json\n")
	t.Setenv("LOG_MAX_AGE_DAYS", "14")
	cfg, err = Load(path, "")
	require.NoError(t, err)
	fileLog, enabled := cfg.Log.FileLog()
	require.True(t, enabled)
	assert.Equal(t, "/var/log/querystudy", fileLog.Dir)
	assert.Equal(t, 14, fileLog.MaxAgeDays)
	assert.Equal(t, "json", fileLog.Format)

	_, err = Load(writeFile(t, "bad.yaml", "log:\n  max_age_days: -1\n"), "")
	assert.ErrorContains(t, err, "invalid config")
}
