package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/gantry/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph_file]",
	Short: "Validate a workflow graph without running it",
	Long: `Validate a workflow graph definition: strict parsing, node and edge
checks, cycle detection, and model class resolution when a stylesheet is
given.

Examples:
  gantry validate release.yaml
  gantry validate release.yaml --stylesheet models.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stylesheetPath, _ := cmd.Flags().GetString("stylesheet")

		g, err := config.Load(args[0], stylesheetPath)
		if err != nil {
			return &exitError{code: ExitUsage, message: err.Error()}
		}
		fmt.Println(successStyle.Sprintf("✓ %s is valid (%d nodes, %d roots)",
			args[0], len(g.Nodes()), len(g.Roots())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("stylesheet", "s", "", "Model stylesheet file")
}
