// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/scoutdb/scoutdb/internal/authz"
	"github.com/scoutdb/scoutdb/internal/config"
	"github.com/scoutdb/scoutdb/internal/metrics"
	"github.com/scoutdb/scoutdb/internal/recordstore"
	"github.com/scoutdb/scoutdb/internal/repository"
	"github.com/scoutdb/scoutdb/internal/runtimeEnv"
	"github.com/scoutdb/scoutdb/internal/scanengine"
	"github.com/scoutdb/scoutdb/internal/taskmanager"
	"github.com/scoutdb/scoutdb/pkg/log"
	"github.com/scoutdb/scoutdb/pkg/nats"

	_ "github.com/mattn/go-sqlite3"
)

// version is overwritten via -ldflags at release build time; left as a
// placeholder for local builds.
var version = "unreleased"

func main() {
	cliInit()

	log.SetLogLevel(flagLogLevel)
	log.SetLogDateTime(flagLogDateTime)

	if flagVersion {
		fmt.Printf("scoutdb %s\n", version)
		return
	}

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatal(err)
	}
	log.SetLogLevel(config.Keys.LogLevel)

	if flagMigrateDB {
		repository.MigrateDB(config.Keys.DB)
		return
	}

	repoConfig := repository.DefaultConfig()
	repoConfig.CacheSize = config.Keys.CacheSize
	repoConfig.PageSize = config.Keys.PageSize
	repository.SetConfig(repoConfig)
	repository.Connect(config.Keys.DB)
	recordRepo := repository.GetRecordRepository()

	resolver := recordstore.NewSQLResolver(recordRepo)
	driver := metrics.Wrap(scanengine.NewScanDriver(resolver))
	metrics.Init()

	if config.Keys.NatsURL != "" {
		raw, err := json.Marshal(nats.NatsConfig{Address: config.Keys.NatsURL})
		if err != nil {
			log.Fatal(err)
		}
		if err := nats.Init(raw); err != nil {
			log.Warnf("main: nats.Init failed: %v", err)
		} else {
			nats.Connect()
		}
	}

	verifier := buildVerifier()
	reg := newScanRegistry()

	if flagIndex != "" && !flagServer {
		out := os.Stdout
		if flagExportFile != "" {
			f, err := os.Create(flagExportFile)
			if err != nil {
				log.Fatal(err)
			}
			defer f.Close()
			if err := runOneShotScanToFile(driver, recordRepo, reg, f); err != nil {
				log.Fatal(err)
			}
			return
		}
		if err := runOneShotScan(driver, recordRepo, reg, flagIndex, flagExportFormat, flagLockForUpdate, out); err != nil {
			log.Fatal(err)
		}
		return
	}

	if !flagServer {
		return
	}

	cronCfg, err := json.Marshal(taskmanager.Config{MaintenanceScanInterval: config.Keys.MaintenanceScanInterval})
	if err != nil {
		log.Fatal(err)
	}
	if err := taskmanager.Start(cronCfg, runMaintenanceScan(recordRepo, resolver, config.Keys.Indexes)); err != nil {
		log.Fatal(err)
	}

	var metricsServer *http.Server
	if config.Keys.MetricsAddr != "" {
		metricsServer = &http.Server{Addr: config.Keys.MetricsAddr, Handler: metrics.Handler()}
		go func() {
			log.Infof("metrics endpoint listening at %s", config.Keys.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal(err)
			}
		}()
	}

	var server *http.Server
	if config.Keys.AdminAddr != "" {
		server = &http.Server{
			Addr:         config.Keys.AdminAddr,
			Handler:      newAdminRouter(reg, verifier),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			log.Infof("admin HTTP surface listening at %s", config.Keys.AdminAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal(err)
			}
		}()
	}

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(25)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	runtimeEnv.SystemdNotifiy(true, "running")
	<-sigs

	runtimeEnv.SystemdNotifiy(false, "shutting down")
	taskmanager.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Errorf("main: admin server shutdown: %v", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Errorf("main: metrics server shutdown: %v", err)
		}
	}
	log.Print("Graceful shutdown completed!")
}

// buildVerifier builds an authz.Verifier from the SCOUTDB_JWT_PUBLIC_KEY
// environment variable (base64-encoded ed25519 public key), mirroring
// the ambient auth stack's own JWT_PUBLIC_KEY convention. Returns nil
// if unset, which disables the admin surface's role check entirely.
func buildVerifier() *authz.Verifier {
	raw := os.Getenv("SCOUTDB_JWT_PUBLIC_KEY")
	if raw == "" {
		log.Warn("SCOUTDB_JWT_PUBLIC_KEY not set: admin HTTP surface will not require authentication")
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.Fatalf("main: could not decode SCOUTDB_JWT_PUBLIC_KEY: %v", err)
	}
	return authz.NewVerifier(ed25519.PublicKey(key))
}

func runOneShotScanToFile(driver *metrics.InstrumentedDriver, repo *repository.RecordRepository, reg *scanRegistry, f *os.File) error {
	return runOneShotScan(driver, repo, reg, flagIndex, flagExportFormat, flagLockForUpdate, f)
}
