package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Status command flags
var statusConfigPath string

// StatusCmd shows the current system status.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Long:  `Show the learner's configuration-derived status and registry contents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, err := newLearner(statusConfigPath)
		if err != nil {
			return err
		}
		defer learner.Close()

		versions, err := learner.Versions(context.Background())
		if err != nil {
			return err
		}

		state := learner.Status()
		status := map[string]interface{}{
			"state":            state.State,
			"gamesProcessed":   state.GamesProcessed,
			"bufferLen":        state.BufferLen,
			"modelVersion":     state.ModelVersion,
			"currentLR":        state.CurrentLR,
			"retainedVersions": len(versions),
		}

		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	},
}

func init() {
	StatusCmd.Flags().StringVarP(&statusConfigPath, "config", "c", "", "Config file path (YAML)")
}
