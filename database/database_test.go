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

package database_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/querystudy/database"
	"github.com/tomoncle/querystudy/entity"
)

var seedFS = fstest.MapFS{
	"common/001_teams.sql": {Data: []byte(`
-- teams
INSERT INTO team (name) VALUES ('teamA');
INSERT INTO team (name) VALUES ('teamB');
`)},
	"common/002_members.sql": {Data: []byte(`
INSERT INTO member (username, age, team_id)
SELECT 'member1', 10, team_id FROM team WHERE name = 'teamA';
INSERT INTO member (username, age, team_id)
SELECT 'member2', 20, team_id FROM team WHERE name = 'teamA';
INSERT INTO member (username, age, team_id) SELECT 'member3', 30, team_id FROM team WHERE name = 'teamB';
INSERT INTO member (username, age, team_id) SELECT 'member4', 40, team_id FROM team WHERE name = 'teamB';
`)},
	"common/README.md":                   {Data: []byte("not sql")},
	"environments/test/001_loner.sql":    {Data: []byte("INSERT INTO member (username, age) VALUES ('loner', 50);")},
	"environments/other/001_ignored.sql": {Data: []byte("INSERT INTO member (username, age) VALUES ('ignored', 1);")},
}

func memoryConfig(t *testing.T) *database.Config {
	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.InMemory = true
	cfg.ConnectionConfig.DBName = strings.ReplaceAll(t.Name(), "/", "_")
	cfg.DataInitConfig.Filepath = ""
	cfg.DataInitConfig.Environment = "test"
	return cfg
}

func count(t *testing.T, db *bun.DB, table string) int {
	t.Helper()
	n, err := db.NewSelect().TableExpr(table).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestInitDBWithSeed(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.DataInitConfig.AutoInitOnMigration = true

	db, err := database.InitDBWithSeed(ctx, cfg, seedFS)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })
	assert.Same(t, db, database.GetDB())

	assert.Equal(t, 2, count(t, db, "team"))
	assert.Equal(t, 5, count(t, db, "member"))

	var teamID int64
	require.NoError(t, db.NewSelect().TableExpr("member").Column("team_id").
		Where("username = ?", "member3").Scan(ctx, &teamID))
	var teamName string
	require.NoError(t, db.NewSelect().TableExpr("team").Column("name").
		Where("team_id = ?", teamID).Scan(ctx, &teamName))
	assert.Equal(t, "teamB", teamName)

	mm := database.NewMigrationManager(db, nil, cfg)
	mm.SetSeedFS(seedFS)
	require.NoError(t, mm.RunMigrations(ctx))
	assert.Equal(t, 5, count(t, db, "member"))

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "001", applied[0].Version)
	assert.Equal(t, "create_base_tables", applied[0].Name)
	assert.Equal(t, "002", applied[1].Version)

	require.NoError(t, database.InitData(ctx))
	assert.Equal(t, 4, count(t, db, "team"))
}

func TestInitDB_WithoutSeed(t *testing.T) {
	db, err := database.InitDB(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	assert.Zero(t, count(t, db, "team"))
	assert.Zero(t, count(t, db, "member"))
}

func TestInitDB_Errors(t *testing.T) {
	_, err := database.InitDB(context.Background(), nil)
	assert.Error(t, err)

	cfg := memoryConfig(t)
	cfg.ConnectionConfig.Type = "oracle"
	_, err = database.InitDB(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestInitDB_SeedFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.DataInitConfig.AutoInitOnMigration = true
	broken := fstest.MapFS{
		"common/001_teams.sql": {Data: []byte("INSERT INTO team (name) VALUES ('teamA');\nINSERT INTO nowhere VALUES (1);")},
	}

	manager := database.NewDatabaseManagerWithSeed(cfg, broken)
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	err := manager.RunMigrations(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002")

	db := manager.GetDB()
	assert.Zero(t, count(t, db, "team"))
	applied, err := database.NewMigrationManager(db, nil, cfg).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001", applied[0].Version)
}

func TestHealthStatus(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, database.CloseDB())
	status := database.GetHealthStatus(ctx)
	assert.False(t, status.Healthy)
	assert.Equal(t, "Database not initialized", status.LastError)

	_, err := database.InitDB(ctx, memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	status = database.GetHealthStatus(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, "sqlite", status.Dialect)
	assert.Equal(t, 1, status.MaxOpenConns)
	assert.Equal(t, 1, database.GetDatabaseStats().MaxOpenConns)
	require.NoError(t, database.GetDatabaseManager().Ping(ctx))
}

// fileConfig points at an sqlite file, which survives closing every
// connection.
func fileConfig(t *testing.T) *database.Config {
	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.DBName = filepath.Join(t.TempDir(), "querystudy")
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.DataInitConfig.Filepath = ""
	return cfg
}

func TestManager_Reconnect(t *testing.T) {
	ctx := context.Background()
	manager := database.NewDatabaseManager(fileConfig(t))
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })
	require.NoError(t, manager.RunMigrations(ctx))

	before := manager.GetDB()
	_, err := before.NewInsert().Model(&entity.Team{Name: "teamA"}).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, manager.Reconnect(ctx))
	after := manager.GetDB()
	assert.NotSame(t, before, after)
	require.NoError(t, manager.Ping(ctx))
	assert.Equal(t, 1, count(t, after, "team"))
	assert.Error(t, before.PingContext(ctx))
}

func TestManager_HealthCheckLoopReconnects(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	cfg.ConnectionConfig.HealthCheckInterval = 20 * time.Millisecond
	cfg.ConnectionConfig.EnableReconnect = true
	cfg.ConnectionConfig.ReconnectInterval = time.Millisecond
	cfg.ConnectionConfig.MaxReconnectTries = 3

	manager := database.NewDatabaseManager(cfg)
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })
	assert.Nil(t, manager.LastHealthStatus())

	require.Eventually(t, func() bool {
		status := manager.LastHealthStatus()
		return status != nil && status.Healthy
	}, 2*time.Second, 10*time.Millisecond)

	broken := manager.GetDB()
	require.NoError(t, manager.GetSQLDB().Close())

	require.Eventually(t, func() bool {
		db := manager.GetDB()
		return db != nil && db != broken && db.PingContext(ctx) == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, manager.Disconnect())
	assert.Nil(t, manager.GetDB())
	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, manager.GetDB(), "health check must stop with Disconnect")
}

func TestManager_NoReconnectWhenDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	cfg.ConnectionConfig.HealthCheckInterval = 10 * time.Millisecond

	manager := database.NewDatabaseManager(cfg)
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	broken := manager.GetDB()
	require.NoError(t, manager.GetSQLDB().Close())

	require.Eventually(t, func() bool {
		status := manager.LastHealthStatus()
		return status != nil && !status.Healthy && status.LastError != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Same(t, broken, manager.GetDB())
}

func TestSQLInitManager_GetSQLFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"common/010_late.sql":             {Data: []byte("SELECT 1;")},
		"common/002_early.sql":            {Data: []byte("SELECT 1;")},
		"common/unnumbered.sql":           {Data: []byte("SELECT 1;")},
		"common/notes.txt":                {Data: []byte("x")},
		"environments/test/001_first.SQL": {Data: []byte("SELECT 1;")},
	}
	files, err := database.NewSQLInitManager(fsys, "test", nil).GetSQLFiles()
	require.NoError(t, err)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	assert.Equal(t, []string{
		"common/002_early.sql",
		"common/010_late.sql",
		"common/unnumbered.sql",
		"environments/test/001_first.SQL",
	}, paths)
	assert.Equal(t, "test", files[3].Environment)

	none, err := database.NewSQLInitManager(fstest.MapFS{}, "prod", nil).GetSQLFiles()
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSplitSQLStatements(t *testing.T) {
	script := `
-- comment
INSERT INTO team (name)
  VALUES ('a');

INSERT INTO team (name) VALUES ('b');
SELECT 1`
	assert.Equal(t, []string{
		"INSERT INTO team (name) VALUES ('a');",
		"INSERT INTO team (name) VALUES ('b');",
		"SELECT 1",
	}, database.SplitSQLStatements(script))
	assert.Empty(t, database.SplitSQLStatements("  \n-- only comments\n"))
	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;"}, database.SplitSQLStatements("SELECT 1;\r\nSELECT 2;\r\n"))
}

func TestSplitSQLStatements_LongLine(t *testing.T) {
	long := "INSERT INTO team (name) VALUES ('" + strings.Repeat("x", 70*1024) + "');"
	script := "INSERT INTO team (name) VALUES ('a');\n" + long + "\nINSERT INTO team (name) VALUES ('b');\n"

	statements := database.SplitSQLStatements(script)
	require.Len(t, statements, 3)
	assert.Equal(t, long, statements[1])
	assert.Equal(t, "INSERT INTO team (name) VALUES ('b');", statements[2])
}

func TestSQLInitManager_SeedsLongLines(t *testing.T) {
	ctx := context.Background()
	db, err := database.InitDB(ctx, memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	long := strings.Repeat("y", 70*1024)
	fsys := fstest.MapFS{"common/001_long.sql": {Data: []byte(
		"INSERT INTO team (name) VALUES ('" + long + "');\nINSERT INTO team (name) VALUES ('after');\n",
	)}}
	require.NoError(t, database.NewSQLInitManager(fsys, "test", nil).ExecuteInitialization(ctx, db))

	var names []string
	require.NoError(t, db.NewSelect().Table("team").Column("name").Order("team_id").Scan(ctx, &names))
	require.Len(t, names, 2)
	assert.Len(t, names[0], len(long))
	assert.Equal(t, "after", names[1])
}

func TestIsSqlError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		ok   bool
		kind database.SQLError
	}{
		{"nil", nil, false, database.UnknownErr},
		{"no rows", sql.ErrNoRows, true, database.NoRowsErr},
		{"postgres unique", &pq.Error{Code: "23505"}, true, database.DuplicateKeyErr},
		{"postgres fk", &pq.Error{Code: "23503"}, true, database.ForeignKeyViolationErr},
		{"postgres missing table", &pq.Error{Code: "42P01"}, true, database.NoTableErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true, database.DuplicateKeyErr},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: team.name (2067)"), true, database.DuplicateKeyErr},
		{"sqlite missing table", errors.New("SQL logic error: no such table: nowhere (1)"), true, database.NoTableErr},
		{"sqlite not null", errors.New("NOT NULL constraint failed: member.age"), true, database.NotNullViolationErr},
		{"mysql unmapped", &mysql.MySQLError{Number: 1205}, true, database.UnknownErr},
		{"wrapped postgres", fmt.Errorf("save team: %w", &pq.Error{Code: "23502"}), true, database.NotNullViolationErr},
		{"sqlite fk", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), true, database.ForeignKeyViolationErr},
		{"index exists", errors.New(`relation "idx_member_age" already exists as index`), true, database.ExistIndexErr},
		{"other", errors.New("connection reset"), false, database.UnknownErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, kind := database.IsSqlError(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
	assert.True(t, database.IsDuplicateKey(&pq.Error{Code: "23505"}))
	assert.True(t, database.IsForeignKeyViolation(&mysql.MySQLError{Number: 1216}))
	assert.False(t, database.IsDuplicateKey(errors.New("boom")))

	assert.True(t, database.IsConstraintViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, database.IsConstraintViolation(&pq.Error{Code: "42P01"}))
	assert.False(t, database.IsConstraintViolation(sql.ErrNoRows))
	assert.Equal(t, "duplicate_key", database.DuplicateKeyErr.String())
	assert.Equal(t, "unknown", database.SQLError(99).String())
}

func TestQueryHook(t *testing.T) {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	var quiet, verbose bytes.Buffer
	db.AddQueryHook(&database.QueryHook{Writer: &quiet})
	db.AddQueryHook(&database.QueryHook{Writer: &verbose, Verbose: true})
	ctx := context.Background()

	_, err = db.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "SELECT 1")

	_, err = db.ExecContext(ctx, "SELECT * FROM nowhere")
	require.Error(t, err)
	assert.Contains(t, quiet.String(), "nowhere")

	quiet.Reset()
	database.EnableBunSqlSilent(true)
	_, _ = db.ExecContext(ctx, "SELECT * FROM nowhere")
	database.EnableBunSqlSilent(false)
	assert.Empty(t, quiet.String())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")
	t.Setenv("DB_SLOW_QUERY_TIME", "250ms")
	t.Setenv("HOST", "ignored.example")
	t.Setenv("INMEMORY", "true")

	cfg := database.DefaultConnectionConfig()
	require.NoError(t, database.ApplyEnvOverrides(cfg))
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.True(t, cfg.EnableQueryLog)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryTime)
	assert.Equal(t, "querystudy", cfg.DBName)
	assert.False(t, cfg.InMemory)
}

func TestApplyEnvOverrides_InvalidValue(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")

	cfg := database.DefaultConnectionConfig()
	err := database.ApplyEnvOverrides(cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "DB_PORT")

	_, err = database.InitDB(context.Background(), memoryConfig(t))
	assert.Error(t, err)
}
