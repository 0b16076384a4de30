package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// Versions command flags
var (
	versionsConfigPath string
	versionsJSON       bool
)

// VersionsCmd lists retained model versions.
var VersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List retained model versions",
	Long:  `List all model versions retained in the registry, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, err := newLearner(versionsConfigPath)
		if err != nil {
			return err
		}
		defer learner.Close()

		versions, err := learner.Versions(context.Background())
		if err != nil {
			return err
		}

		if len(versions) == 0 {
			fmt.Println("No versions retained")
			return nil
		}

		if versionsJSON {
			output, _ := json.MarshalIndent(versions, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tKIND\tMODEL\tSTABILITY\tCREATED")
		for _, v := range versions {
			fmt.Fprintf(w, "%d\t%s\t%d\t%.3f\t%s\n",
				v.Version, v.Metadata.Kind, v.Metadata.ModelVersion,
				v.Metadata.StabilityScore, v.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

// Rollback command flags
var (
	rollbackConfigPath string
	rollbackVersion    int64
)

// RollbackCmd restores a retained model version.
var RollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Restore a retained model version",
	Long: `Restore a retained model version onto the serving model.

Without --version, the most recent retained version is restored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, err := newLearner(rollbackConfigPath)
		if err != nil {
			return err
		}
		defer learner.Close()

		ctx := context.Background()

		if rollbackVersion > 0 {
			if err := learner.RestoreVersion(ctx, rollbackVersion); err != nil {
				return err
			}
			fmt.Printf("Restored model version %d\n", rollbackVersion)
			return nil
		}

		if err := learner.Rollback(ctx); err != nil {
			return err
		}
		fmt.Println("Restored most recent model version")
		return nil
	},
}

func init() {
	VersionsCmd.Flags().StringVarP(&versionsConfigPath, "config", "c", "", "Config file path (YAML)")
	VersionsCmd.Flags().BoolVar(&versionsJSON, "json", false, "Output as JSON")

	RollbackCmd.Flags().StringVarP(&rollbackConfigPath, "config", "c", "", "Config file path (YAML)")
	RollbackCmd.Flags().Int64VarP(&rollbackVersion, "version", "V", 0, "Version to restore (default: latest)")
}
