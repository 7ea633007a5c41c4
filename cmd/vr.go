package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/exec"
	"github.com/mattsolo1/grove-assets/pkg/state"
	"github.com/mattsolo1/grove-assets/pkg/visual"
	"github.com/mattsolo1/grove-core/cli"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	vrFilter   string
	vrUser     string
	vrGroup    string
	vrScenario string
)

func NewVRCmd() *cobra.Command {
	vrCmd := &cobra.Command{
		Use:     "vr",
		Aliases: []string{"visual"},
		Short:   "Run BackstopJS visual regression tests",
		Long: `Run BackstopJS visual regression tests against the configured site.

Scenario groups live in <dir>/scenarios/<group>.json. Runs as a user other
than "guest" first log in and store the session cookies for the scenarios.`,
	}

	for _, sub := range []struct {
		use   string
		short string
	}{
		{"reference", "Create reference screenshots"},
		{"test", "Compare the site against the reference screenshots"},
		{"approve", "Promote the last test screenshots to reference"},
		{"report", "Open the last report"},
	} {
		command, err := visual.ParseCommand(sub.use)
		if err != nil {
			panic(err)
		}
		c := &cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runVisual(command)
			},
		}
		c.Flags().StringVar(&vrFilter, "filter", "", "Only run scenarios whose label matches this pattern")
		c.Flags().StringVar(&vrUser, "user", "", "Run scenarios as this user (guest disables login)")
		c.Flags().StringVar(&vrGroup, "group", "", "Scenario group to run (all runs every group)")
		c.Flags().StringVar(&vrScenario, "scenario", "", "Scenario group that overrides --group")
		vrCmd.AddCommand(c)
	}

	vrCmd.AddCommand(newVRStatusCmd())
	return vrCmd
}

// applyVisualFlags overrides the visual regression settings from flags.
func applyVisualFlags(cfg *config.Config) {
	if vrUser != "" {
		cfg.VisualRegression.User = vrUser
	}
	if vrGroup != "" {
		cfg.VisualRegression.Group = vrGroup
	}
	if vrScenario != "" {
		cfg.VisualRegression.Scenario = vrScenario
	}
}

func runVisual(command visual.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyVisualFlags(cfg)

	a := newApp(cfg, &exec.RealCommandExecutor{})
	ctx, stop := signalContext()
	defer stop()
	return a.orchestrator.Run(ctx, command, vrFilter)
}

func newVRStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last visual regression run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := state.GetLastVisualRun()
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(run)
			}
			if run == nil {
				fmt.Println("No visual regression run recorded yet.")
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.VisualRegression.Scenario = run.Group
			printVisualRun(run, visual.NewSynthesizer(cfg))
			return nil
		},
	}
}

func printVisualRun(run *state.VisualRun, synth *visual.Synthesizer) {
	result := color.New(color.FgGreen, color.Bold).Sprint("passed")
	if !run.Success {
		result = color.New(color.FgRed, color.Bold).Sprint("failed")
	}

	fmt.Printf("Last run:  %s %s\n", run.Command, result)
	fmt.Printf("Run ID:    %s\n", run.RunID)
	fmt.Printf("Group:     %s\n", run.Group)
	fmt.Printf("User:      %s\n", run.User)
	fmt.Printf("Finished:  %s\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Error != "" {
		fmt.Printf("Error:     %s\n", run.Error)
	}

	reportDir, err := synth.ReportDir()
	if err != nil {
		return
	}
	index := filepath.Join(reportDir, "index.html")
	if abs, err := filepath.Abs(index); err == nil {
		fmt.Printf("Report:    %s\n", termenv.Hyperlink("file://"+abs, index))
	}
}
