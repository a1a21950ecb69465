package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeloop/internal/agent"
	"codeloop/internal/audit"
	"codeloop/internal/backup"
	"codeloop/internal/config"
	"codeloop/internal/logging"
	"codeloop/internal/model"
	"codeloop/internal/session"
	"codeloop/internal/workspace"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	configPath string
	wsRoot     string
	modelURL   string
	maxLoops   int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "codeloop",
	Short: "codeloop - model-driven project editing loop",
	Long: `codeloop lets a language model iteratively inspect and mutate a local
project. The model's replies carry tool directives (read, write, replace,
list, run, restore); codeloop executes them against the workspace and feeds
the results back until the model delivers a final answer.

Run without arguments to start an interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cfg)

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(logging.Options{
			Level:       level,
			Development: cfg.Logging.Development,
			Categories:  cfg.Logging.Categories,
		}); err != nil {
			return err
		}

		loadedCfg = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Run a single turn and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp(loadedCfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return app.loop.SendMessage(ctx, uuid.NewString(), args[0])
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit [session-id]",
	Short: "Show the recorded tool executions for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadedCfg
		if !cfg.Audit.Enabled {
			return fmt.Errorf("audit trail is disabled in config")
		}

		trail, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return err
		}
		defer trail.Close()

		records, err := trail.BySession(args[0], 200)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Printf("%s  %-13s %-7s %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Kind, rec.Status, rec.Path)
		}
		if len(records) == 0 {
			fmt.Println("no recorded executions for this session")
		}
		return nil
	},
}

// loadedCfg is populated by PersistentPreRunE before any command runs.
var loadedCfg *config.Config

func applyFlagOverrides(cfg *config.Config) {
	if wsRoot != "" {
		cfg.Workspace.Root = wsRoot
	}
	if modelURL != "" {
		cfg.Model.Endpoint = modelURL
	}
	if maxLoops > 0 {
		cfg.Loop.MaxLoops = maxLoops
	}
}

// app bundles the wired core components.
type app struct {
	cfg     *config.Config
	loop    *agent.Loop
	gateway *workspace.Gateway
	client  *model.HTTPClient
	watcher *config.Watcher
}

// buildApp wires the core from config: backup store, gateway, session
// store, model client, executor, loop, plus optional audit trail and the
// config hot-reload watcher.
func buildApp(cfg *config.Config) (*app, func(), error) {
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root, _ = os.Getwd()
	}

	backups := backup.NewStore()
	gateway := workspace.New(cfg.Workspace.Root, cfg.Workspace.IgnoreDirs, backups)
	gateway.SetRunOptions(workspace.RunOptions{
		Timeout:        cfg.CommandTimeout(),
		MaxOutputBytes: cfg.Execution.MaxOutputBytes,
	})

	sessions := session.NewStore()
	client := model.NewHTTPClient(cfg.Model.Endpoint, cfg.ModelTimeout())
	executor := agent.NewExecutor(gateway)

	sink := &consoleSink{out: os.Stdout}
	loop := agent.New(sessions, client, executor, sink)
	loop.SetMaxLoops(cfg.Loop.MaxLoops)

	a := &app{cfg: cfg, loop: loop, gateway: gateway, client: client}

	var trail *audit.Trail
	if cfg.Audit.Enabled {
		var err error
		trail, err = audit.Open(cfg.Audit.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit trail: %w", err)
		}
		loop.SetAuditTrail(trail)
	}

	if watcher, err := config.NewWatcher(configPath, a.applyReload); err == nil {
		a.watcher = watcher
		_ = watcher.Start(context.Background())
	} else {
		logging.ConfigWarn("config watcher unavailable: %v", err)
	}

	cleanup := func() {
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if trail != nil {
			trail.Close()
		}
	}
	return a, cleanup, nil
}

// applyReload pushes a freshly loaded config into the running components.
func (a *app) applyReload(cfg *config.Config) {
	applyFlagOverrides(cfg)
	if cfg.Workspace.Root != "" {
		a.gateway.SetRoot(cfg.Workspace.Root)
	}
	a.gateway.SetIgnoreDirs(cfg.Workspace.IgnoreDirs)
	a.gateway.SetRunOptions(workspace.RunOptions{
		Timeout:        cfg.CommandTimeout(),
		MaxOutputBytes: cfg.Execution.MaxOutputBytes,
	})
	a.client.SetEndpoint(cfg.Model.Endpoint)
	a.loop.SetMaxLoops(cfg.Loop.MaxLoops)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "codeloop.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&wsRoot, "workspace", "w", "", "workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&modelURL, "model-url", "", "model endpoint URL")
	rootCmd.PersistentFlags().IntVar(&maxLoops, "max-loops", 0, "iteration cap per turn")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(auditCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
