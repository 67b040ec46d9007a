package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/naka-gawa/github-traffic/internal/config"
	"github.com/naka-gawa/github-traffic/internal/gateway"
	"github.com/naka-gawa/github-traffic/internal/storage"
	"github.com/naka-gawa/github-traffic/internal/usecase"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetches repository traffic and appends new days to the CSV log",
	Long: `Fetches the per-day views and clones of $REPO_OWNER/$REPO_NAME using $GH_TOKEN,
merges them by date and appends every date not yet present in the log.
Dates already in the log are never rewritten. Exits non-zero if either request fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)

		envFile, _ := cmd.InheritedFlags().GetString("env-file")
		if err := config.LoadEnvFile(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if file, _ := cmd.InheritedFlags().GetString("file"); file != "" {
			cfg.LogPath = file
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		maxSleep, _ := cmd.Flags().GetDuration("max-rate-limit-sleep")

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		logger.Printf("Syncing traffic of %s/%s into %s", cfg.Owner, cfg.Repo, cfg.LogPath)

		// Inject dependencies and run the main business logic.
		githubGateway, err := gateway.NewGitHubGateway(cfg.Token, gateway.Options{MaxRateLimitSleep: maxSleep}, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		trafficLog := storage.NewTrafficLog(cfg.LogPath, logger)
		syncer := usecase.NewSyncer(githubGateway, trafficLog, logger)

		result, err := syncer.Run(ctx, cfg.Owner, cfg.Repo)
		if err != nil {
			reportSyncError(os.Stderr, err)
			os.Exit(1)
		}

		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

// reportSyncError describes a failed sync. An API error is reported once
// with its endpoint, status and body.
func reportSyncError(w io.Writer, err error) {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		fmt.Fprintf(w, "Failed to sync traffic: %s endpoint returned %d\n", apiErr.Endpoint, apiErr.StatusCode)
		fmt.Fprintf(w, "Traffic %s API response: %d %s\n", apiErr.Endpoint, apiErr.StatusCode, apiErr.Body)
		return
	}
	fmt.Fprintf(w, "Failed to sync traffic: %v\n", err)
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Duration("timeout", 0, "Deadline for the whole sync, e.g. 30s (0 waits indefinitely)")
	syncCmd.Flags().Duration("max-rate-limit-sleep", 0, "Longest single sleep allowed on a secondary rate limit (0 fails immediately)")
}
