package cli

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"ragpipe/internal/adapter/corpus"
)

var loadPatterns []string

var loadCmd = &cobra.Command{
	Use:   "load [directory]",
	Short: "Embed and index corpus files (JSON documents with chunks)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := dataDir
		if len(args) > 0 {
			root = args[0]
		}

		p, err := buildPipeline(cfg, dataDir)
		if err != nil {
			return err
		}
		defer p.Close()

		files, err := corpus.Discover(root, loadPatterns)
		if err != nil {
			return fmt.Errorf("failed to discover corpus files: %w", err)
		}
		if len(files) == 0 {
			fmt.Println("No corpus files found.")
			return nil
		}

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("Loading corpus"),
		)

		loader := corpus.NewLoader(p.embedder, p.index)
		ctx := context.Background()
		totalChunks := 0
		for _, file := range files {
			n, err := loader.LoadFile(ctx, file)
			if err != nil {
				return err
			}
			totalChunks += n
			bar.Add(1)
		}

		fmt.Printf("\nIndexed %d chunks from %d files.\n", totalChunks, len(files))
		return nil
	},
}

func init() {
	loadCmd.Flags().StringSliceVar(&loadPatterns, "glob", []string{"**/*.json"}, "corpus file glob patterns")
	rootCmd.AddCommand(loadCmd)
}
