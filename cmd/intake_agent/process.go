package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/ae-intake/internal/config"
	"github.com/jonathan/ae-intake/internal/pipeline"
)

var (
	processUser        string
	processConcurrency int
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Process local PDF files through the intake pipeline",
	Long:  "Runs one or more local PDF files through the full intake pipeline: validation, PHI scan, extraction, analysis, and persistence.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		deps, _, cleanup, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(processConcurrency)

		for _, path := range args {
			path := path
			g.Go(func() error {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}

				result, err := pipeline.Run(gctx, deps, pipeline.Options{
					UserID:   processUser,
					Filename: filepath.Base(path),
					Content:  content,
					OnProgress: func(ev pipeline.ProgressEvent) {
						log.Printf("[%s] %3d%% %s: %s", ev.DocumentID, ev.Percent, ev.Stage, ev.Message)
					},
				})
				if err != nil {
					return fmt.Errorf("failed to process %s: %w", path, err)
				}

				fmt.Printf("%s: document %s (session %s, risk %s)\n",
					path, result.DocumentID, result.SessionID, result.Security.RiskLevel)
				return nil
			})
		}

		return g.Wait()
	},
}

func init() {
	processCmd.Flags().StringVar(&processUser, "user", "", "user id to attribute the documents to")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 2, "number of files to process in parallel")
	rootCmd.AddCommand(processCmd)
}
