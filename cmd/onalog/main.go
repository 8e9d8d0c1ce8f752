// onalog is the local CLI for the workout-log pipeline: run one processing
// pass against the sheet, inspect the checkpoint, or serve the Telegram
// intake webhook. Checkpoints live in a local state file so a laptop run
// never touches the production Firestore document.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var stateFilePath string

var rootCmd = &cobra.Command{
	Use:   "onalog",
	Short: "Workout log pipeline tools",
	Long: `onalog processes free-form workout logs from the raw-log sheet into
structured workout and activity rows.

Configuration comes from the environment: SHEET_WEBAPP_URL and SHEET_SECRET
are always required; GEMINI_API_KEY is required for parsing.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateFilePath, "state", "state.json", "path to the local checkpoint file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
