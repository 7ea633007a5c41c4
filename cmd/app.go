package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattsolo1/grove-assets/pkg/assets"
	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/exec"
	"github.com/mattsolo1/grove-assets/pkg/notify"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"github.com/mattsolo1/grove-assets/pkg/state"
	"github.com/mattsolo1/grove-assets/pkg/visual"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	parallelism int
)

// RegisterGlobalFlags adds the flags every command understands.
func RegisterGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configFile, "config-file", "", "Override config file (default "+config.DefaultOverrideFile+")")
	root.PersistentFlags().IntVar(&parallelism, "parallel", 0, "Max tasks run at once (overrides the configured parallelism)")
}

// app holds the components built from one configuration.
type app struct {
	cfg          *config.Config
	exec         exec.CommandExecutor
	runner       *pipeline.Runner
	builder      *assets.Builder
	orchestrator *visual.Orchestrator
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".", configFile)
	if err != nil {
		return nil, err
	}
	if parallelism > 0 {
		cfg.Parallelism = parallelism
	}
	return cfg, nil
}

func newApp(cfg *config.Config, executor exec.CommandExecutor) *app {
	browser := &visual.RodBrowser{Headless: cfg.Backstop.Headless}
	orchestrator := visual.NewOrchestrator(cfg, visual.Deps{
		Provisioner: visual.NewProvisioner(cfg, executor, browser),
		Engine:      visual.NewBackstopEngine(executor, cfg.Backstop.Engine, os.Stdout, os.Stderr),
		Notifier: notify.Multi{
			notify.NewConsoleNotifier(os.Stderr),
			notify.NewDesktopNotifier(executor),
		},
		Recorder: state.VisualRecorder{},
	})

	return &app{
		cfg:          cfg,
		exec:         executor,
		runner:       pipeline.NewRunner(cfg.Parallelism),
		builder:      assets.NewBuilder(cfg, executor, os.Stdout, os.Stderr),
		orchestrator: orchestrator,
	}
}

func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, &exec.RealCommandExecutor{}), nil
}

func (a *app) registry() *assets.Registry {
	return a.builder.Registry(a.runner, a.orchestrator, runFilter)
}

// signalContext is cancelled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
