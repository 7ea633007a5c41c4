package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-core/cli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the asset pipeline configuration",
	}
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigDefaultsCmd())
	return configCmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after all layers are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return writeConfig(os.Stdout, cfg, cli.GetOptions(cmd).JSONOutput)
		},
	}
}

func newConfigDefaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in configuration, a starting point for " + config.DefaultOverrideFile,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeConfig(os.Stdout, config.Default(), cli.GetOptions(cmd).JSONOutput)
		},
	}
}

func writeConfig(w io.Writer, cfg *config.Config, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
