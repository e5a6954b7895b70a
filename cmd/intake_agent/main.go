// Package main provides the entry point for the adverse-event intake
// service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "intake_agent",
	Short: "Adverse-event report intake service",
	Long:  "Intake agent accepts PDF adverse-event reports, scans them for PHI, extracts structured case data via external services, and persists results with a full audit trail.",
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
