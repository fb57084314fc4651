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

// Package config loads the application configuration from a YAML file, an
// optional .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/tomoncle/querystudy/database"
	"github.com/tomoncle/querystudy/utils"
)

const DefaultEnvFile = ".env"

type Config struct {
	Env      string          `yaml:"env" envconfig:"APP_ENV" validate:"required"`
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Database database.Config `yaml:"database"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"HTTP_ADDR" validate:"required"`
	Mode            string        `yaml:"mode" envconfig:"GIN_MODE" validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"HTTP_SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// LogConfig configures console logging and, when Dir is set, daily rolling
// log files.
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format     string `yaml:"format" envconfig:"CONSOLE_LOG_FORMAT" validate:"oneof=text json"`
	Dir        string `yaml:"dir" envconfig:"LOG_DIR"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"LOG_MAX_AGE_DAYS" validate:"gte=0"`
	FileFormat string `yaml:"file_format" envconfig:"FILE_LOG_FORMAT" validate:"oneof=text json"`
}

// FileLog returns the file logging settings, ok is false when disabled.
func (c LogConfig) FileLog() (cfg utils.FileLogConfig, ok bool) {
	if c.Dir == "" {
		return utils.FileLogConfig{}, false
	}
	return utils.FileLogConfig{Dir: c.Dir, MaxAgeDays: c.MaxAgeDays, Format: c.FileFormat}, true
}

func Default() *Config {
	return &Config{
		Env: "local",
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxAgeDays: 7,
			FileFormat: "text",
		},
		Database: *database.DefaultConfig(),
	}
}

// Load reads path (skipped when empty) over the defaults, then applies the
// variables of envFile that are not already set, then the environment.
func Load(path, envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Database.DataInitConfig.Environment == "" {
		cfg.Database.DataInitConfig.Environment = cfg.Env
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(envFile string) error {
	if envFile == "" {
		return nil
	}
	envMap, err := godotenv.Read(envFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read env file %s: %w", envFile, err)
	}
	for k, v := range envMap {
		if _, exists := os.LookupEnv(k); !exists {
			_ = os.Setenv(k, v)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var app struct {
		Env string `envconfig:"APP_ENV"`
	}
	for _, spec := range []interface{}{&app, &cfg.Server, &cfg.Log} {
		if err := envconfig.Process("", spec); err != nil {
			return fmt.Errorf("load environment: %w", err)
		}
	}
	if app.Env != "" {
		cfg.Env = app.Env
	}
	return database.ApplyEnvOverrides(&cfg.Database.ConnectionConfig)
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
