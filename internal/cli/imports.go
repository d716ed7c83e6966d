package cli // import "jobimporter.app/internal/cli"

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"jobimporter.app/internal/config"
	"jobimporter.app/internal/importer"
	"jobimporter.app/internal/queue"
	"jobimporter.app/internal/scheduler"
	"jobimporter.app/internal/storage"
)

var flagRunsLimit int

var runsCmd = cobra.Command{
	Use:   "runs",
	Short: "Print recent import runs as JSON",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				svc := importer.NewService(store, nil, nil)
				runs, err := svc.ListRecentRuns(ctx, flagRunsLimit)
				if err != nil {
					return err
				}
				return printJSON(runs)
			})
	},
}

var statsCmd = cobra.Command{
	Use:   "stats",
	Short: "Print job and import statistics as JSON",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorage(
			func(ctx context.Context, store *storage.Storage) error {
				stats, err := importer.NewService(store, nil, nil).Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
	},
}

var triggerImportsCmd = cobra.Command{
	Use:   "trigger-imports",
	Short: "Queue an import task for every configured feed and exit",
	Args:  cobra.ExactArgs(0),

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rdb, err := queue.NewRedisClient(ctx, config.Opts.RedisAddr())
		if err != nil {
			return err
		}
		defer rdb.Close()

		q := queue.New(rdb, config.Opts.ImportMaxAttempts(),
			config.Opts.ImportRetryDelay())
		sched, err := scheduler.New(q, config.Opts.ImportCronSchedule(),
			config.Opts.FeedURLs())
		if err != nil {
			return err
		}

		result := importer.NewService(nil, q, sched).TriggerImportsNow(ctx)
		return printJSON(result)
	},
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 100,
		"Maximum number of runs to print")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
