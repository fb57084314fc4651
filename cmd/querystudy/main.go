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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tomoncle/querystudy"
	"github.com/tomoncle/querystudy/config"
	"github.com/tomoncle/querystudy/database"
	"github.com/tomoncle/querystudy/server"
	"github.com/tomoncle/querystudy/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "YAML configuration file, empty for defaults")
	envFile := flag.String("env-file", config.DefaultEnvFile, "dotenv file applied before the environment")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	utils.ConfigureConsoleLogFormat(cfg.Log.Format)
	utils.ConfigureLogLevel(cfg.Log.Level)
	if fileLog, ok := cfg.Log.FileLog(); ok {
		if err := utils.ConfigureFileLog(fileLog); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer utils.CloseFileLogs()
	}
	log := utils.NewLogger("MAIN")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, &cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("database initialization failed")
	}
	defer func() { _ = database.CloseDB() }()

	gin.SetMode(cfg.Server.Mode)
	handler := server.NewHandler(querystudy.NewMemberService(db), database.GetHealthStatus)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(handler, utils.NewLogger("HTTP")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
