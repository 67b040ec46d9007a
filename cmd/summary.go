package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/naka-gawa/github-traffic/internal/config"
	"github.com/naka-gawa/github-traffic/internal/storage"
	"github.com/naka-gawa/github-traffic/internal/usecase"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarizes the CSV traffic log and outputs as JSON",
	Long:  `Reads the CSV traffic log and prints the total, mean, median and max of each metric. Blank cells are left out.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)

		envFile, _ := cmd.InheritedFlags().GetString("env-file")
		if err := config.LoadEnvFile(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path := config.LogPath()
		if file, _ := cmd.InheritedFlags().GetString("file"); file != "" {
			path = file
		}
		if _, err := os.Stat(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot read traffic log: %v\n", err)
			os.Exit(1)
		}

		summarizer := usecase.NewSummarizer(storage.NewTrafficLog(path, logger), logger)
		summary, err := summarizer.Summarize()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to summarize traffic log: %v\n", err)
			os.Exit(1)
		}

		jsonData, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
