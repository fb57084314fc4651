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

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const logDateLayout = "2006-01-02"

// FileLogConfig enables file logging into Dir/<yyyy-mm-dd>/<level>.log.
type FileLogConfig struct {
	Dir string
	// MaxAgeDays removes day directories older than that many days when the
	// date rolls over. 0 keeps them all.
	MaxAgeDays int
	// Format is "text" (uncolored log4j layout) or "json".
	Format string
}

var (
	fileSinkMu sync.RWMutex
	fileSink   *rollingSink
	logClock   = time.Now
)

// ConfigureFileLog starts writing every logger returned by NewLogger to daily
// rolling files. A second call replaces the previous destination.
func ConfigureFileLog(cfg FileLogConfig) error {
	if cfg.Dir == "" {
		return fmt.Errorf("file log directory is empty")
	}
	if cfg.MaxAgeDays < 0 {
		return fmt.Errorf("file log max age must not be negative: %d", cfg.MaxAgeDays)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	sink := newRollingSink(cfg)

	fileSinkMu.Lock()
	previous := fileSink
	fileSink = sink
	fileSinkMu.Unlock()
	if previous != nil {
		previous.close()
	}
	return nil
}

// CloseFileLogs stops file logging and closes the open files.
func CloseFileLogs() {
	fileSinkMu.Lock()
	sink := fileSink
	fileSink = nil
	fileSinkMu.Unlock()
	if sink != nil {
		sink.close()
	}
}

// fileHook is installed on every named logger. It looks the sink up on each
// entry, so it follows ConfigureFileLog and CloseFileLogs.
type fileHook struct {
	name string
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	fileSinkMu.RLock()
	sink := fileSink
	fileSinkMu.RUnlock()
	if sink == nil {
		return nil
	}
	return sink.write(h.name, e)
}

// rollingSink owns one daily writer per level file. Fatal and panic entries
// go to the error file.
type rollingSink struct {
	format  string
	writers map[logrus.Level]*dailyLevelWriter
}

func newRollingSink(cfg FileLogConfig) *rollingSink {
	mk := func(level string) *dailyLevelWriter {
		return &dailyLevelWriter{baseDir: cfg.Dir, level: level, maxAgeDays: cfg.MaxAgeDays}
	}
	errorW := mk("error")
	return &rollingSink{
		format: strings.ToLower(strings.TrimSpace(cfg.Format)),
		writers: map[logrus.Level]*dailyLevelWriter{
			logrus.TraceLevel: mk("trace"),
			logrus.DebugLevel: mk("debug"),
			logrus.InfoLevel:  mk("info"),
			logrus.WarnLevel:  mk("warn"),
			logrus.ErrorLevel: errorW,
			logrus.FatalLevel: errorW,
			logrus.PanicLevel: errorW,
		},
	}
}

func (s *rollingSink) formatter(name string) logrus.Formatter {
	if s.format == "json" {
		return &JSONLogFormatter{LoggerName: name}
	}
	return &Log4jFormatter{LoggerName: name, NameWidth: 10}
}

func (s *rollingSink) write(name string, e *logrus.Entry) error {
	w, ok := s.writers[e.Level]
	if !ok {
		return nil
	}
	b, err := s.formatter(name).Format(e)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (s *rollingSink) close() {
	seen := map[*dailyLevelWriter]bool{}
	for _, w := range s.writers {
		if !seen[w] {
			seen[w] = true
			w.Close()
		}
	}
}

// dailyLevelWriter appends to baseDir/<date>/<level>.log and reopens the file
// when the date changes.
type dailyLevelWriter struct {
	baseDir    string
	level      string
	maxAgeDays int

	mu      sync.Mutex
	curDate string
	file    *os.File
}

func (w *dailyLevelWriter) Write(p []byte) (int, error) {
	now := logClock()
	date := now.Format(logDateLayout)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil || w.curDate != date {
		rolled := w.curDate != "" && w.curDate != date
		if err := w.open(date); err != nil {
			return 0, err
		}
		if rolled {
			w.cleanup(now)
		}
	}
	return w.file.Write(p)
}

func (w *dailyLevelWriter) open(date string) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, w.level+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file, w.curDate = f, date
	return nil
}

// cleanup removes day directories dated before now minus maxAgeDays.
func (w *dailyLevelWriter) cleanup(now time.Time) {
	if w.maxAgeDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -w.maxAgeDays).Format(logDateLayout)
	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(logDateLayout, e.Name()); err != nil {
			continue
		}
		// yyyy-mm-dd sorts chronologically
		if e.Name() < cutoff {
			_ = os.RemoveAll(filepath.Join(w.baseDir, e.Name()))
		}
	}
}

func (w *dailyLevelWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
}
