package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"golang.org/x/sync/errgroup"
)

const (
	// ScssLintConfig is the stylelint config applied to scss sources.
	ScssLintConfig = ".stylelintrc.scss.json"
	// CSSLintConfig is the stylelint config applied to compiled css.
	CSSLintConfig = ".stylelintrc.json"
	// VendorDir is the output subdirectory reserved for vendor copies.
	VendorDir = "vendor"
)

var scssExts = withExt(".scss")

// compiledCSS matches generated stylesheets, excluding minified copies.
func compiledCSS(rel string) bool {
	return strings.HasSuffix(rel, ".css") && !strings.HasSuffix(rel, ".min.css")
}

// Styles lints the scss sources, compiles them and lints the result.
func (b *Builder) Styles() pipeline.Step {
	return pipeline.Series(b.LintScss(), b.BuildScss(), b.LintCSS())
}

// LintScss runs stylelint with --fix over the scss sources.
func (b *Builder) LintScss() pipeline.Step {
	return pipeline.Func("styles:lint-scss", func(ctx context.Context) error {
		files, err := collect(b.cfg.Stylesheets.Sass.Src, scssExts)
		if err != nil {
			return err
		}
		return b.lint(ctx, "stylelint", b.cfg.Tools.Stylelint, map[string]string{"config": ScssLintConfig}, files)
	})
}

// LintCSS runs stylelint with --fix over the compiled stylesheets.
func (b *Builder) LintCSS() pipeline.Step {
	return pipeline.Func("styles:lint-css", func(ctx context.Context) error {
		files, err := collect(b.cfg.Stylesheets.CSS.Dest, compiledCSS)
		if err != nil {
			return err
		}
		return b.lint(ctx, "stylelint", b.cfg.Tools.Stylelint, map[string]string{"config": CSSLintConfig}, files)
	})
}

// BuildScss compiles every non-partial scss file, prefixes the output for
// the supported browsers and writes a minified copy next to each result.
func (b *Builder) BuildScss() pipeline.Step {
	return pipeline.Func("styles:build", b.buildScss)
}

func (b *Builder) buildScss(ctx context.Context) error {
	sass := b.cfg.Stylesheets.Sass
	cssDest := b.cfg.Stylesheets.CSS.Dest

	sources, err := collect(sass.Src, func(rel string) bool {
		return scssExts(rel) && !strings.HasPrefix(filepath.Base(rel), "_")
	})
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return nil
	}

	outputs := make([]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Parallelism)
	for i, src := range sources {
		dest, err := destFor(sass.Src, cssDest, strings.TrimSuffix(src, ".scss")+".css")
		if err != nil {
			return err
		}
		outputs[i] = dest
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			return b.runTool(gctx, "sass", b.cfg.Tools.Sass, map[string]string{
				"src":   src,
				"dest":  dest,
				"style": sass.Options.OutputStyle,
			}, nil)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := b.runTool(ctx, "autoprefixer", b.cfg.Tools.Autoprefixer, nil, outputs, b.browserslistEnv()); err != nil {
		return err
	}

	return b.minifyAll(ctx, "cleancss", b.cfg.Tools.CSSMinifier, outputs)
}

// minifyAll writes a .min copy beside every file.
func (b *Builder) minifyAll(ctx context.Context, tool string, cmd config.Command, files []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Parallelism)
	for _, f := range files {
		g.Go(func() error {
			return b.runTool(gctx, tool, cmd, map[string]string{"src": f, "out": MinifiedName(f)}, nil)
		})
	}
	return g.Wait()
}

// MinifiedName inserts .min before the extension of path.
func MinifiedName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".min" + ext
}

// CleanStyles empties the css destination but keeps vendor copies.
func (b *Builder) CleanStyles() pipeline.Step {
	return pipeline.Func("styles:clean", func(ctx context.Context) error {
		if err := removeAllExcept(b.cfg.Stylesheets.CSS.Dest, VendorDir); err != nil {
			return fmt.Errorf("styles:clean: %w", err)
		}
		return nil
	})
}
