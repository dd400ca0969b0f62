package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"ragpipe/config"
)

var (
	cfgFile string
	cfg     *config.Config
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Retrieval-and-ranking pipeline with streamed query progress",
	Long: `ragpipe answers natural-language queries against an indexed corpus by
planning facet weights, running hybrid vector/metadata search, re-ranking with
a recency-decayed utility signal, and streaming progress to the caller.

Example usage:
  ragpipe load ./corpus            # Embed and index corpus files
  ragpipe query -q "meeting dates" # Run one query, printing progress events
  ragpipe serve                    # Serve queries over SSE`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if dataDir == "" {
			dataDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(dataDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel(cfg.Logging.Level),
		})))
		return nil
	},
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragpipe.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "data directory (default is current directory)")
}
