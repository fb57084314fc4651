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
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const commonEnvironment = "common"

var fileOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SQLInitManager seeds data from SQL files laid out as
//
//	common/NNN_name.sql
//	environments/<env>/NNN_name.sql
//
// common files run first; within a directory files run by their NNN prefix.
type SQLInitManager struct {
	fsys        fs.FS
	environment string
	logger      Logger
}

// SQLFileInfo describes a SQL file to be executed during initialization.
type SQLFileInfo struct {
	Path        string
	Name        string
	Order       int
	Environment string
}

// ExecutionResult contains the outcome of executing a single SQL file.
type ExecutionResult struct {
	File         string
	Duration     time.Duration
	RowsAffected int64
}

// NewSQLInitManager creates a SQL initializer for the given environment.
func NewSQLInitManager(fsys fs.FS, environment string, logger Logger) *SQLInitManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &SQLInitManager{fsys: fsys, environment: environment, logger: logger}
}

// ExecuteInitialization runs all SQL files against db and stops at the first
// failure. Each file runs in its own transaction unless db already is one.
func (s *SQLInitManager) ExecuteInitialization(ctx context.Context, db bun.IDB) error {
	files, err := s.GetSQLFiles()
	if err != nil {
		return fmt.Errorf("failed to get SQL files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No SQL files found to execute", "environment", s.environment)
		return nil
	}

	for _, file := range files {
		result, err := s.executeFile(ctx, db, file)
		if err != nil {
			s.logger.Error("SQL file execution failed", "file", file.Path, "error", err)
			return fmt.Errorf("SQL file execution failed %s: %w", file.Path, err)
		}
		s.logger.Info("SQL file executed successfully",
			"file", result.File,
			"duration", result.Duration.String(),
			"rows_affected", result.RowsAffected,
		)
	}
	s.logger.Info("SQL initialization completed", "total_files", len(files), "environment", s.environment)
	return nil
}

// GetSQLFiles lists common files followed by the environment's files.
func (s *SQLInitManager) GetSQLFiles() ([]SQLFileInfo, error) {
	common, err := s.filesIn(commonEnvironment, commonEnvironment)
	if err != nil {
		return nil, err
	}
	env, err := s.filesIn(path.Join("environments", s.environment), s.environment)
	if err != nil {
		return nil, err
	}
	return append(common, env...), nil
}

func (s *SQLInitManager) filesIn(dir, environment string) ([]SQLFileInfo, error) {
	var files []SQLFileInfo
	err := fs.WalkDir(s.fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		files = append(files, SQLFileInfo{
			Path:        p,
			Name:        d.Name(),
			Order:       parseFileOrder(d.Name()),
			Environment: environment,
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// parseFileOrder reads the NNN_ prefix; unprefixed files sort last.
func parseFileOrder(name string) int {
	if m := fileOrderPattern.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 999
}

func (s *SQLInitManager) executeFile(ctx context.Context, db bun.IDB, file SQLFileInfo) (ExecutionResult, error) {
	start := time.Now()
	result := ExecutionResult{File: file.Path}

	content, err := fs.ReadFile(s.fsys, file.Path)
	if err != nil {
		return result, fmt.Errorf("failed to read file: %w", err)
	}
	statements := SplitSQLStatements(string(content))

	if bunDB, ok := db.(*bun.DB); ok {
		err = bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			result.RowsAffected, err = execStatements(ctx, tx, statements)
			return err
		})
	} else {
		result.RowsAffected, err = execStatements(ctx, db, statements)
	}
	result.Duration = time.Since(start)
	return result, err
}

func execStatements(ctx context.Context, conn bun.IConn, statements []string) (int64, error) {
	var total int64
	for _, stmt := range statements {
		res, err := conn.ExecContext(ctx, stmt)
		if err != nil {
			return total, fmt.Errorf("failed to execute SQL statement: %s, error: %w", stmt, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// SplitSQLStatements splits a script into statements terminated by ";" at
// the end of a line. Blank lines and "--" comment lines are dropped. Lines
// have no length limit.
func SplitSQLStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte(' ')
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
