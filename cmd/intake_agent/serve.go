package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jonathan/ae-intake/internal/config"
	"github.com/jonathan/ae-intake/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document intake HTTP server",
	Long:  "Starts the HTTP server that accepts adverse event report uploads and exposes document, extraction, and narrative endpoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if servePort != 0 {
			cfg.Port = servePort
		}

		ctx := context.Background()
		deps, database, cleanup, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}

		srv := server.New(server.Config{Port: cfg.Port, Close: cleanup}, database, deps)
		log.Printf("intake server listening on port %d", cfg.Port)
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}
