package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"qnup/internal/app"
	"qnup/internal/config"
	"qnup/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	version    = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "qnup [path]",
	Short: "Upload a file or a directory to Qiniu Kodo or any S3-compatible bucket",
	Long: `qnup uploads a single file, or every file under a directory, to an object
storage bucket. Directories are split over up to --max-workers concurrent
workers; a failed file never stops the rest of the batch.`,
	Args:          cobra.MaximumNArgs(1),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runUpload,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML)")
	config.RegisterFlags(rootCmd.Flags())

	rootCmd.AddCommand(historyCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if len(args) == 1 {
		if flags.Changed("file-path") {
			return fmt.Errorf("path given both as argument and --file-path")
		}
		if err := flags.Set("file-path", args[0]); err != nil {
			return err
		}
	}

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go cancelOnSignal(ctx, sigChan, cancel, log)

	// Create application
	uploader, err := app.New(ctx, cfg, log, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create uploader: %w", err)
	}

	summary, err := uploader.Run(ctx)

	// Close uploader resources after the batch completes or is cancelled
	if closeErr := uploader.Close(); closeErr != nil {
		log.Error("Error closing uploader", zap.Error(closeErr))
	}

	if err != nil {
		return err
	}
	return app.CheckPolicy(cfg.Upload.FailOn, summary)
}

// cancelOnSignal cancels the batch on the first signal. Uploads in flight are
// aborted, not drained.
func cancelOnSignal(ctx context.Context, sigChan <-chan os.Signal, cancel context.CancelFunc, log *zap.Logger) {
	select {
	case <-sigChan:
		log.Warn("Received shutdown signal, cancelling in-flight uploads...")
		cancel()
	case <-ctx.Done():
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
