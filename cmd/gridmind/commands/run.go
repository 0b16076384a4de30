// Package commands provides CLI command implementations.
package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
	gridmind "github.com/gridmind/gridmind-go/pkg/gridmind"
)

// Run command flags
var (
	runConfigPath string
	runGamesPath  string
	runFocus      string
	runVerbose    bool
)

// RunCmd replays recorded games through the learning loop.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the learning loop over recorded games",
	Long: `Run the learning loop over a JSONL file of recorded game outcomes.

Each line is one game outcome. Games are ingested in order; model update
cycles fire whenever the trigger conditions hold.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, err := newLearner(runConfigPath)
		if err != nil {
			return err
		}
		defer learner.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Println("\nShutting down...")
			cancel()
		}()

		if runVerbose {
			learner.On("*", func(event gridmind.Event) {
				output, _ := json.Marshal(event)
				fmt.Println(string(output))
			})
		}

		focus, err := parseFocus(runFocus)
		if err != nil {
			return err
		}

		file, err := os.Open(runGamesPath)
		if err != nil {
			return fmt.Errorf("failed to open games file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

		var ingested, skipped int
		for scanner.Scan() {
			if ctx.Err() != nil {
				break
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var game gridmind.GameOutcome
			if err := json.Unmarshal(line, &game); err != nil {
				skipped++
				continue
			}

			learner.Ingest(game)
			ingested++

			learner.TryUpdate(ctx, focus)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read games file: %w", err)
		}

		status := learner.Status()
		fmt.Printf("Ingested %d games (%d skipped)\n", ingested, skipped)
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	},
}

func newLearner(configPath string) (*gridmind.Learner, error) {
	config := gridmind.DefaultConfig()
	if configPath != "" {
		loaded, err := gridmind.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	return gridmind.NewLearner(gridmind.LearnerConfig{Config: config})
}

func parseFocus(value string) (*gridmind.LossPatternType, error) {
	if value == "" {
		return nil, nil
	}

	pattern := learning.LossPatternType(value)
	switch pattern {
	case learning.LossHorizontal, learning.LossVertical,
		learning.LossDiagonal, learning.LossAntiDiagonal:
		return &pattern, nil
	}
	return nil, fmt.Errorf("unknown loss pattern %q", value)
}

func init() {
	RunCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Config file path (YAML)")
	RunCmd.Flags().StringVarP(&runGamesPath, "games", "g", "", "Games file path (JSONL, required)")
	RunCmd.Flags().StringVarP(&runFocus, "focus", "f", "", "Loss pattern to focus sampling on")
	RunCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print all events")
	RunCmd.MarkFlagRequired("games")
}
