package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"golang.org/x/sync/errgroup"
)

// es6Suffix marks scripts that are transpiled rather than copied.
const es6Suffix = ".es6.js"

var jsExts = withExt(".js")

func isES6(rel string) bool {
	return strings.HasSuffix(rel, es6Suffix)
}

func isPlainJS(rel string) bool {
	return jsExts(rel) && !isES6(rel)
}

// Scripts lints the sources, then builds the es6 and plain scripts.
func (b *Builder) Scripts() pipeline.Step {
	return pipeline.Series(b.LintJS(), b.BuildES6(), b.BuildJS())
}

// LintJS runs eslint with --fix over every script source.
func (b *Builder) LintJS() pipeline.Step {
	return pipeline.Func("scripts:lint", func(ctx context.Context) error {
		files, err := collect(b.cfg.JS.Src, jsExts)
		if err != nil {
			return err
		}
		return b.lint(ctx, "eslint", b.cfg.Tools.Eslint, nil, files)
	})
}

// BuildES6 transpiles every *.es6.js source to <name>.js in the scripts
// destination and minifies the result.
func (b *Builder) BuildES6() pipeline.Step {
	return pipeline.Func("scripts:es6", b.buildES6)
}

func (b *Builder) buildES6(ctx context.Context) error {
	sources, err := collect(b.cfg.JS.Src, isES6)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Parallelism)
	for _, src := range sources {
		out, err := destFor(b.cfg.JS.Src, b.cfg.JS.Dest, strings.TrimSuffix(src, es6Suffix)+".js")
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			vars := map[string]string{"src": src, "out": out}
			if err := b.runTool(gctx, "babel", b.cfg.Tools.Babel, vars, nil, b.browserslistEnv()); err != nil {
				return err
			}
			return b.runTool(gctx, "uglify", b.cfg.Tools.JSMinifier, map[string]string{"src": out, "out": MinifiedName(out)}, nil)
		})
	}
	return g.Wait()
}

// BuildJS copies plain scripts into the destination and minifies them.
func (b *Builder) BuildJS() pipeline.Step {
	return pipeline.Func("scripts:js", b.buildJS)
}

func (b *Builder) buildJS(ctx context.Context) error {
	sources, err := collect(b.cfg.JS.Src, isPlainJS)
	if err != nil {
		return err
	}

	outputs := make([]string, 0, len(sources))
	for _, src := range sources {
		out, err := destFor(b.cfg.JS.Src, b.cfg.JS.Dest, src)
		if err != nil {
			return err
		}
		if err := copyFile(src, out); err != nil {
			return fmt.Errorf("scripts:js: %w", err)
		}
		outputs = append(outputs, out)
	}
	return b.minifyAll(ctx, "uglify", b.cfg.Tools.JSMinifier, outputs)
}

// CleanScripts empties the scripts destination but keeps vendor copies.
func (b *Builder) CleanScripts() pipeline.Step {
	return pipeline.Func("scripts:clean", func(ctx context.Context) error {
		if err := removeAllExcept(b.cfg.JS.Dest, VendorDir); err != nil {
			return fmt.Errorf("scripts:clean: %w", err)
		}
		return nil
	})
}
