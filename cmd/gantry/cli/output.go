package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/engine"
	"github.com/deepnoodle-ai/gantry/internal/tablewriter"
)

var (
	successStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed)
	warnStyle    = color.New(color.FgYellow)
	dimStyle     = color.New(color.Faint)
)

// exitError carries a specific process exit code up through cobra.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string { return e.message }

func asExitError(err error, target **exitError) bool {
	return errors.As(err, target)
}

func printError(message string) {
	fmt.Fprintln(os.Stderr, errorStyle.Sprint("✗ "+message))
}

func styleForStatus(status gantry.OutcomeStatus) *color.Color {
	switch status {
	case gantry.OutcomeSuccess:
		return successStyle
	case gantry.OutcomeFailure, gantry.OutcomeEscalated:
		return errorStyle
	default:
		return dimStyle
	}
}

// printRunSummary renders the run's terminal report: a per-node table plus
// escalation details when a gate exhausted its retries.
func printRunSummary(result *engine.RunResult) {
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Node", "Status", "Duration", "Error"})

	nodeIDs := make([]string, 0, len(result.Outcomes))
	for nodeID := range result.Outcomes {
		nodeIDs = append(nodeIDs, nodeID)
	}
	sort.Strings(nodeIDs)
	for _, nodeID := range nodeIDs {
		outcome := result.Outcomes[nodeID]
		duration := ""
		if outcome.Status != gantry.OutcomeSkipped {
			duration = outcome.Duration().Round(time.Millisecond).String()
		}
		table.Append([]string{
			nodeID,
			styleForStatus(outcome.Status).Sprint(string(outcome.Status)),
			duration,
			outcome.Error,
		})
	}
	table.Render()

	for _, escalation := range result.Escalations {
		fmt.Println(errorStyle.Sprintf("\nGate %q escalated after %d evaluations:",
			escalation.NodeID, escalation.Evaluations))
		for _, cr := range escalation.FailedCriteria {
			if !cr.Found {
				fmt.Printf("  - %s: field not found\n", cr.Criterion.Field)
				continue
			}
			fmt.Printf("  - %s: got %q, expected %s %q\n",
				cr.Criterion.Field, cr.Actual, cr.Criterion.Op, cr.Criterion.Expected)
		}
	}

	fmt.Println()
	switch result.Status {
	case engine.StatusCompleted:
		fmt.Println(successStyle.Sprintf("✓ Run %s completed", result.RunID))
	case engine.StatusFailed:
		fmt.Println(errorStyle.Sprintf("✗ Run %s failed", result.RunID))
	case engine.StatusEscalated:
		fmt.Println(errorStyle.Sprintf("⚠ Run %s escalated", result.RunID))
	case engine.StatusInterrupted:
		fmt.Println(warnStyle.Sprintf("⏸ Run %s interrupted (resume with --run-id %s)",
			result.RunID, result.RunID))
	}
}

func exitCodeForStatus(status engine.RunStatus) int {
	switch status {
	case engine.StatusCompleted:
		return ExitCompleted
	case engine.StatusEscalated:
		return ExitEscalated
	case engine.StatusInterrupted:
		return ExitInterrupted
	default:
		return ExitFailed
	}
}
