package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"ragpipe/internal/domain"
)

var (
	queryText string
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one query against the index, printing progress events",
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryText == "" {
			return fmt.Errorf("query text is required (-q)")
		}

		p, err := buildPipeline(cfg, dataDir)
		if err != nil {
			return err
		}
		defer p.Close()

		session := domain.NewQuerySession(uuid.NewString(), uuid.NewString(), queryText)
		events := p.emitter.Subscribe(session.SessionID)
		go p.orchestrator.Run(context.Background(), session)

		for event := range events {
			if queryJSON {
				data, err := json.Marshal(event)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				continue
			}
			printEvent(event)
		}

		if session.State() != domain.StateDone {
			os.Exit(1)
		}
		return nil
	},
}

func printEvent(event domain.Event) {
	switch event.Type {
	case domain.EventNodeUpdate:
		fmt.Printf("… %s\n", event.Summary)
	case domain.EventAnswer:
		fmt.Printf("\n%s\n", event.Text)
		for i, c := range event.Citations {
			fmt.Printf("  [%d] %s %s (%s, score %.3f)\n", i+1, c.DocID, c.Section, c.ChunkID, c.Score)
		}
	case domain.EventError:
		fmt.Fprintf(os.Stderr, "error: %s\n", event.Message)
	}
}

func init() {
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "query text")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print raw event JSON")
	rootCmd.AddCommand(queryCmd)
}
