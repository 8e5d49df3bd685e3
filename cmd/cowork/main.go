package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jhl-labs/sepilot-desktop-sub001/audit"
	"github.com/jhl-labs/sepilot-desktop-sub001/client"
	"github.com/jhl-labs/sepilot-desktop-sub001/config"
	"github.com/jhl-labs/sepilot-desktop-sub001/engine"
	"github.com/jhl-labs/sepilot-desktop-sub001/internal"
	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/internal/fsio"
	"github.com/jhl-labs/sepilot-desktop-sub001/risk"
	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
	"github.com/jhl-labs/sepilot-desktop-sub001/verify"
)

var GitCommit, GitVersion string

var (
	configPath  string
	workDir     string
	debugMode   bool
	autoApprove bool
	dryRun      bool
	modelName   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cowork [task]",
		Short: "Autonomous coding agent",
		Long:  "Runs a coding task through the plan/execute/verify loop with risk-gated approvals.",
		RunE:  run,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "w", "", "Working directory for the task")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&autoApprove, "yes", "y", false, "Approve risky tool calls without prompting")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Log mutating tool calls instead of executing them")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Override the configured model")

	rootCmd.AddCommand(configCmd(), historyCmd(), versionCmd())

	viper.AutomaticEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("you must specify a task")
	}
	task := strings.Join(args, " ")

	cfg := loadConfig()
	if cfg.APIKey == "" {
		cfg.APIKey = viper.GetString(strings.ToUpper(cfg.Name) + "_API_KEY")
	}
	if cfg.APIKey == "" {
		return errors.New("missing API key: set api_key in the config file or the " +
			strings.ToUpper(cfg.Name) + "_API_KEY environment variable")
	}

	if cfg.Debug {
		internal.SetAllowedLogLevels(zapcore.DebugLevel, zapcore.InfoLevel)
	} else {
		internal.SetAllowedLogLevels(zapcore.InfoLevel)
	}

	debug := zap.NewNop().Sugar()
	if cfg.Debug {
		fileLogger, closeLogger, err := internal.NewDebugFileLogger(cfg.Name + ".debug.jsonl")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer closeLogger()
		debug = fileLogger
	}

	db, err := audit.NewDB(cfg.AuditDBPath)
	if err != nil {
		return fmt.Errorf("open audit database: %w", err)
	}
	defer db.Close()
	store := audit.NewStore(db)

	realClock := clock.NewRealClock()
	reader := fsio.NewRealReader(fsio.DefaultBufferSize)
	writer := &fsio.RealWriter{}
	shell := tools.NewExecShellRunner()

	registry := tools.NewRegistry(tools.WithAllowedTools(cfg.Agent.AllowedTools))
	for _, tool := range tools.NewBuiltinTools(cfg.WorkDir, reader, writer, shell) {
		registry.Register(tool)
	}

	coordinator := tools.NewCoordinator(registry, realClock,
		tools.WithToolTimeout(time.Duration(cfg.Agent.ToolTimeoutSeconds)*time.Second),
		tools.WithMaxRetries(cfg.Agent.ToolMaxRetries),
		tools.WithDryRun(cfg.Agent.DryRun),
		tools.WithActivitySink(store),
		tools.WithCoordinatorDebugLogger(debug),
	)

	analyzer := risk.NewAnalyzer(
		risk.WithBulkChangeThreshold(cfg.Agent.BulkChangeThreshold),
		risk.WithLargeWriteThreshold(cfg.Agent.LargeWriteThreshold),
		risk.WithSensitivePatterns(cfg.Agent.SensitiveFilePatterns),
	)

	pipeline := verify.NewPipeline(shell,
		verify.WithLintFileLimit(cfg.Agent.LintFileLimit),
		verify.WithBackendTestDirs(cfg.Agent.BackendTestDirs),
		verify.WithPipelineDebugLogger(debug),
	)

	completer := client.New(cfg.APIKey,
		client.WithModel(cfg.Model),
		client.WithDebugLogger(debug),
	)

	graphs := engine.NewGraphRegistry()
	orchestrator := engine.NewOrchestrator(completer, registry, coordinator, realClock,
		engine.WithRiskAnalyzer(analyzer),
		engine.WithVerifyPipeline(pipeline),
		engine.WithApprovalArchive(store),
		engine.WithGraphRegistry(graphs),
		engine.WithMaxIterations(cfg.Agent.MaxIterations),
		engine.WithSkipVerification(cfg.Agent.SkipVerification),
		engine.WithDebugLogger(debug),
	)
	graphs.Register(orchestrator)

	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("initialize prompt: %w", err)
	}
	defer rl.Close()

	session := orchestrator.NewSession(engine.SessionParams{
		ConversationID:     uuid.NewString(),
		WorkingDirectory:   cfg.WorkDir,
		Goal:               task,
		InputTrustLevel:    types.TrustLevel(cfg.Agent.TrustLevel),
		AlwaysApproveTools: cfg.Agent.AlwaysApproveTools || autoApprove,
		Callbacks: engine.Callbacks{
			Approval: approvalPrompt(rl),
			Discuss:  discussPrompt(rl),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- orchestrator.Run(cmd.Context(), session)
	}()

	for event := range session.Events() {
		render(event)
	}

	return <-errCh
}

// approvalPrompt shows each risky call and asks for a y/N answer.
func approvalPrompt(rl *readline.Instance) engine.ApprovalFunc {
	return func(_ context.Context, request types.ApprovalRequest) (bool, error) {
		fmt.Printf("\n⚠️  Approval needed (%s risk): %s\n", request.RiskLevel, request.Message)
		for _, item := range request.Items {
			fmt.Printf("  - %s: %s\n", item.ToolName, item.Summary)
		}

		rl.SetPrompt("Approve these tool calls? [y/N] ")
		line, err := rl.Readline()
		if err != nil {
			return false, err
		}

		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

func discussPrompt(rl *readline.Instance) engine.DiscussFunc {
	return func(_ context.Context, stepIndex int, question string) (string, error) {
		fmt.Printf("\n💬 Step %d needs your input: %s\n", stepIndex+1, question)

		rl.SetPrompt("Your answer: ")
		return rl.Readline()
	}
}

func render(event engine.Event) {
	switch event.Type {
	case engine.EventNode:
		if event.Delta != "" {
			fmt.Print(event.Delta)
			return
		}
		if event.Status != "" {
			zap.S().Infof("[%s] %s", event.Phase, event.Status)
		}
	case engine.EventApprovalResult:
		if event.ApprovalGranted != nil && *event.ApprovalGranted {
			zap.S().Infof("[approval] granted")
		} else {
			zap.S().Infof("[approval] denied")
		}
	case engine.EventError:
		zap.S().Errorf("run failed: %s", event.Err)
	case engine.EventEnd:
		fmt.Println()
	}
}

// loadConfig resolves defaults, config file, environment, then flags.
func loadConfig() types.Config {
	store := config.New()
	if configPath != "" {
		store = store.WithConfigPath(configPath)
	}
	cfg := config.NewManager(store).WithEnvironment().Config

	if workDir != "" {
		cfg.WorkDir = workDir
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if debugMode {
		cfg.Debug = true
	}
	if dryRun {
		cfg.Agent.DryRun = true
	}
	return cfg
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.New()
			if configPath != "" {
				store = store.WithConfigPath(configPath)
			}
			out, err := config.NewManager(store).WithEnvironment().ShowConfig()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Show a conversation's tool activity and approvals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			db, err := audit.NewDB(cfg.AuditDBPath)
			if err != nil {
				return fmt.Errorf("open audit database: %w", err)
			}
			defer db.Close()
			store := audit.NewStore(db)

			records, err := store.ListActivity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, record := range records {
				fmt.Printf("%s  %-16s %-8s %dms\n",
					record.Timestamp.Format("2006-01-02 15:04:05"), record.ToolName, record.Status, record.DurationMs)
			}

			approvals, err := store.ListApprovals(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, entry := range approvals {
				fmt.Printf("%s  approval %-8s (%s) %s\n",
					entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Decision, entry.RiskLevel, entry.Summary)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			version := GitVersion
			if version == "" {
				version = "dev"
			}
			if GitCommit != "" {
				version += " (" + GitCommit + ")"
			}
			fmt.Println("cowork " + version)
		},
	}
}
