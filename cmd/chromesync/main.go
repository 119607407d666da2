/*
 * Copyright 2025 Carver Automation Corporation.
 *
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
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/carverauto/chromesync/pkg/config"
	"github.com/carverauto/chromesync/pkg/db"
	"github.com/carverauto/chromesync/pkg/directory"
	"github.com/carverauto/chromesync/pkg/logger"
	"github.com/carverauto/chromesync/pkg/sync"
	"github.com/carverauto/chromesync/pkg/version"
)

const (
	envPrefix = "CHROMESYNC_"
	// legacyKeyEnv predates the config file and still locates the key when
	// credentials.key_file is unset.
	legacyKeyEnv = "GOOGLE_DLP_KEY"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file (environment overrides still apply)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	dryRun := flag.Bool("dry-run", false, "Collect and normalize devices without loading them")
	flag.Parse()

	if *showVersion {
		fmt.Println("chromesync", version.GetFullVersion())
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, *dryRun)
	cancel()

	if err != nil {
		log.Fatalf("chromesync: %v", err)
	}
}

func run(ctx context.Context, configPath string, dryRun bool) error {
	cfg, err := loadConfig(ctx, configPath, dryRun)
	if err != nil {
		return err
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	appLogger, err := logger.New(logConfig)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	defer func() {
		if err := logger.ShutdownOTel(); err != nil {
			log.Printf("chromesync: flush OTel exporters: %v", err)
		}
	}()

	if err := logger.InitTracing(ctx, logConfig.OTel); err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}

	appLogger = appLogger.WithComponent("chromesync")

	metrics := sync.NewPrometheusMetrics()
	if cfg.Metrics.TextfilePath != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
				appLogger.Warn().Err(err).Str("path", cfg.Metrics.TextfilePath).Msg("Failed to write metrics textfile")
			}
		}()
	}

	var (
		constants sync.ConstantProvider
		loader    sync.RowLoader
	)

	if cfg.NeedsDatabase() {
		pool, err := db.NewPool(ctx, cfg.Database, appLogger.WithComponent("db"))
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		store, err := db.NewConstantStore(pool, cfg.Constants.Table)
		if err != nil {
			return err
		}

		constants = store

		if !dryRun {
			l, err := db.NewLoader(pool, cfg.Loader, appLogger.WithComponent("loader"))
			if err != nil {
				return err
			}

			loader = l
		}
	}

	if err := sync.ResolveIdentities(ctx, &cfg.Credentials, cfg.Constants, constants); err != nil {
		return err
	}

	tokens, err := directory.NewGoogleTokenProvider(cfg.GoogleCredentials())
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	executor := directory.NewExecutor(
		&http.Client{Transport: http.DefaultTransport},
		cfg.ExecutorConfig(),
		appLogger.WithComponent("executor"),
		directory.WithMetrics(metrics),
	)

	collector := directory.NewCollector(executor, cfg.CollectorConfig(), appLogger.WithComponent("collector"), metrics)

	syncer, err := sync.New(tokens, collector, loader, appLogger,
		sync.WithMetrics(metrics),
		sync.WithDryRun(dryRun),
	)
	if err != nil {
		return err
	}

	_, err = syncer.Run(ctx)

	return err
}

func loadConfig(ctx context.Context, configPath string, dryRun bool) (*sync.Config, error) {
	bootLogger, err := logger.New(logger.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	cfg := &sync.Config{
		Credentials: sync.CredentialsConfig{KeyFile: os.Getenv(legacyKeyEnv)},
		DryRun:      dryRun,
	}

	if err := config.NewConfig(bootLogger, envPrefix).LoadAndValidate(ctx, configPath, cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}
