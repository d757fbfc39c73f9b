package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/checkpoint"
	"github.com/deepnoodle-ai/gantry/config"
	"github.com/deepnoodle-ai/gantry/engine"
	"github.com/deepnoodle-ai/gantry/handler"
	"github.com/deepnoodle-ai/gantry/provider"
	"github.com/deepnoodle-ai/gantry/provider/agentcli"
	"github.com/deepnoodle-ai/gantry/provider/google"
	"github.com/deepnoodle-ai/gantry/provider/openai"
	"github.com/deepnoodle-ai/gantry/slogger"
	"github.com/deepnoodle-ai/gantry/workspace"
)

var runCmd = &cobra.Command{
	Use:   "run [graph_file]",
	Short: "Execute a workflow graph",
	Long: `Execute a workflow graph, checkpointing every node outcome.

An interrupted or failed run can be resumed by passing the same --run-id:
finished nodes are never re-executed.

Examples:
  gantry run release.yaml --stylesheet models.yaml
  gantry run release.yaml --run-id run_01jt3qkns7f2 --stylesheet models.yaml
  gantry run release.yaml --stylesheet models.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graphPath := args[0]
		stylesheetPath, _ := cmd.Flags().GetString("stylesheet")
		runID, _ := cmd.Flags().GetString("run-id")
		checkpointDir, _ := cmd.Flags().GetString("checkpoints")
		workspaceRoot, _ := cmd.Flags().GetString("workspace-root")
		agentCommand, _ := cmd.Flags().GetString("agent-cmd")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		maxCycles, _ := cmd.Flags().GetInt("max-cycles")
		watch, _ := cmd.Flags().GetBool("watch")

		logger := newLogger()

		// SIGINT interrupts the run: in-flight nodes finish and are
		// checkpointed before the engine exits.
		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		runOnce := func(ctx context.Context) (*engine.RunResult, error) {
			return executeRun(ctx, runConfig{
				graphPath:      graphPath,
				stylesheetPath: stylesheetPath,
				runID:          runID,
				checkpointDir:  checkpointDir,
				workspaceRoot:  workspaceRoot,
				agentCommand:   agentCommand,
				concurrency:    concurrency,
				maxCycles:      maxCycles,
				logger:         logger,
			})
		}

		if watch {
			return watchAndRun(ctx, graphPath, stylesheetPath, runOnce)
		}

		result, err := runOnce(ctx)
		if err != nil {
			return &exitError{code: ExitUsage, message: err.Error()}
		}
		printRunSummary(result)
		return &exitError{code: exitCodeForStatus(result.Status)}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("stylesheet", "s", "", "Model stylesheet file")
	runCmd.Flags().String("run-id", "", "Run id to start or resume (generated when empty)")
	runCmd.Flags().String("checkpoints", ".gantry/checkpoints", "Checkpoint directory")
	runCmd.Flags().String("workspace-root", ".", "Shared result tree for software nodes")
	runCmd.Flags().String("agent-cmd", "", "External coding-agent command for the 'agent' provider")
	runCmd.Flags().IntP("concurrency", "c", 4, "Maximum nodes executing in parallel")
	runCmd.Flags().Int("max-cycles", 0, "Bound on dispatch cycles (0 for the default)")
	runCmd.Flags().BoolP("watch", "w", false, "Re-run when the graph definition changes")
}

type runConfig struct {
	graphPath      string
	stylesheetPath string
	runID          string
	checkpointDir  string
	workspaceRoot  string
	agentCommand   string
	concurrency    int
	maxCycles      int
	logger         slogger.Logger
}

// buildProviders assembles the provider registry from ambient credentials
// plus the optional external agent command.
func buildProviders(cfg runConfig) ([]gantry.Provider, error) {
	var providers []gantry.Provider
	if os.Getenv("OPENAI_API_KEY") != "" {
		providers = append(providers, openai.New())
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		providers = append(providers, google.New())
	}
	if cfg.agentCommand != "" {
		parts := strings.Fields(cfg.agentCommand)
		providers = append(providers,
			agentcli.New("agent", parts[0], agentcli.WithArgs(parts[1:]...)))
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers available: set OPENAI_API_KEY or GEMINI_API_KEY, or pass --agent-cmd")
	}
	return providers, nil
}

func executeRun(ctx context.Context, cfg runConfig) (*engine.RunResult, error) {
	g, err := config.Load(cfg.graphPath, cfg.stylesheetPath)
	if err != nil {
		return nil, err
	}
	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	registry, err := provider.NewRegistry(providers, provider.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	workspaces, err := workspace.New(cfg.workspaceRoot, "",
		workspace.WithCommitter(workspace.NewGitCommitter()),
		workspace.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	handlers, err := handler.NewSet(handler.SetOptions{
		Registry:   registry,
		Workspaces: workspaces,
		Logger:     cfg.logger,
	})
	if err != nil {
		return nil, err
	}
	store := checkpoint.NewFileStore(cfg.checkpointDir)

	opts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithConcurrency(cfg.concurrency),
	}
	if cfg.maxCycles > 0 {
		opts = append(opts, engine.WithMaxCycles(cfg.maxCycles))
	}
	e, err := engine.New(g, store, handlers, opts...)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, cfg.runID)
}
