// Package assets defines the static asset tasks: copying fonts, optimizing
// images and icons, compiling stylesheets and scripts, vendoring third-party
// dist files, cleaning outputs and rebuilding on change.
package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/exec"
	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/sirupsen/logrus"
)

// DefaultNodeModules is where vendor packages are read from.
const DefaultNodeModules = "node_modules"

// Builder creates the pipeline steps for every asset task from one
// configuration.
type Builder struct {
	cfg         *config.Config
	exec        exec.CommandExecutor
	stdout      io.Writer
	stderr      io.Writer
	nodeModules string
	log         *logrus.Entry
}

// NewBuilder creates a builder that runs external tools through executor.
// Tool output is streamed to stdout and stderr; nil writers fall back to the
// process streams.
func NewBuilder(cfg *config.Config, executor exec.CommandExecutor, stdout, stderr io.Writer) *Builder {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Builder{
		cfg:         cfg,
		exec:        executor,
		stdout:      stdout,
		stderr:      stderr,
		nodeModules: DefaultNodeModules,
		log:         grovelogging.NewLogger("grove-assets.assets"),
	}
}

// WithNodeModules points vendor copies at a different node_modules tree.
func (b *Builder) WithNodeModules(dir string) *Builder {
	b.nodeModules = dir
	return b
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// runTool expands a command template and runs it to completion.
func (b *Builder) runTool(ctx context.Context, tool string, cmd config.Command, vars map[string]string, files []string, env ...string) error {
	name, args, err := cmd.Expand(vars, files)
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	b.log.WithFields(logrus.Fields{
		"tool":  tool,
		"files": len(files),
	}).Debug("Running " + name)

	err = b.exec.Stream(ctx, exec.StreamOptions{Stdout: b.stdout, Stderr: b.stderr, Env: env}, name, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}

// lint runs a linter whose findings never fail the pipeline.
func (b *Builder) lint(ctx context.Context, tool string, cmd config.Command, vars map[string]string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	if err := b.runTool(ctx, tool, cmd, vars, files); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.log.WithError(err).WithField("tool", tool).Warn("Lint reported problems")
	}
	return nil
}

// browserslistEnv exposes the supported browser list to autoprefixer and
// babel.
func (b *Builder) browserslistEnv() string {
	return "BROWSERSLIST=" + strings.Join(b.cfg.SupportedBrowser, ", ")
}
