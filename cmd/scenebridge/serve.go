// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/SceneBridge/services/bridge"
	"github.com/AleutianAI/SceneBridge/services/bridge/extraction"
	"github.com/AleutianAI/SceneBridge/services/bridge/host/memory"
)

var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge server",
	Long: `Starts the bridge against the in-memory reference host and serves
until interrupted. Embedding applications replace the reference host by
linking their own host.Host implementation.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"run gin in debug mode and attach stack traces to error envelopes")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var opts []memory.Option
	if cfg.ScenePath != "" {
		opts = append(opts, memory.WithScenePath(cfg.ScenePath))
	}
	h := memory.New(opts...)

	srv, err := bridge.New(cfg, h)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}
	srv.AddRouteProvider(extraction.NewProvider(srv.Dispatcher(), srv.Transfer(), srv.Bus()))

	if err := srv.Start(cmd.Context()); err != nil {
		return err
	}
	printBanner(srv.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Wait() }()

	select {
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func printBanner(addr string) {
	if !stdoutIsTerminal() {
		return
	}
	banner := fmt.Sprintf("%s v%s\n%s %s\n%s %s",
		styleTitle.Render("SceneBridge"), bridge.Version,
		styleMuted.Render("listening on"), addr,
		styleMuted.Render("staging in"), cfg.StagingDir)
	fmt.Println(styleBox.Render(banner))
}
