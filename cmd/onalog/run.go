package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onalog/server/pkg/bootstrap"
	"github.com/onalog/server/pkg/parser"
	"github.com/onalog/server/pkg/pipeline"
	"github.com/onalog/server/pkg/sheets"
	"github.com/onalog/server/pkg/statefile"
)

var runLimit int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one processing pass",
	Long: `Fetch unprocessed raw entries, parse each one, write workout and
activity rows for confident parses, and advance the local checkpoint.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max raw entries to fetch (0 = default)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireParser(); err != nil {
		return err
	}
	bootstrap.InitLogger()

	limit := cfg.FetchLimit
	if runLimit > 0 {
		limit = runLimit
	}

	driver := &pipeline.Driver{
		Store:       sheets.NewClient(cfg.SheetWebAppURL, cfg.SheetSecret),
		Parser:      parser.New(&parser.GeminiGenerator{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}),
		Checkpoints: statefile.New(stateFilePath),
		FetchLimit:  limit,
	}

	summary, err := driver.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Fetched %d, processed %d (ok %d, needs_review %d, failed %d)\n",
		summary.Fetched, summary.Processed, summary.OK, summary.NeedsReview, summary.Failed)
	if summary.LastTimestamp != "" {
		fmt.Println("Checkpoint:", summary.LastTimestamp)
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp, err := statefile.New(stateFilePath).LoadCheckpoint(cmd.Context())
		if err != nil {
			return err
		}
		if cp.LastTimestamp == "" {
			fmt.Println("No checkpoint yet; the next run processes everything.")
			return nil
		}
		fmt.Println("Last processed timestamp:", cp.LastTimestamp)
		return nil
	},
}
