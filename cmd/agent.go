package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"melodex/core/collection"
	"melodex/logger"

	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the background scan agent",
	Long:  `Runs the periodic reindex scheduler (and the directory watcher when enabled) until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent()
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := collection.NewScheduler(a.indexer, a.cfg.ScanInterval, a.cfg.ScanInitialDelay)
	scheduler.Start(ctx)

	if a.cfg.WatchEnabled {
		watcher := collection.NewWatcher(a.indexer, a.directories, 0)
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Directory watcher stopped", logger.ErrorField(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scan agent")
	cancel()
	scheduler.Stop()
	return nil
}
