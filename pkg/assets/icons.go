package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// blackPaint matches a fill or stroke painted black, as an attribute or as a
// style declaration. Group 1 is everything up to the color value.
var blackPaint = regexp.MustCompile(`(?i)((?:fill|stroke)\s*(?:=\s*["']\s*|:\s*))(#000000\b|#000\b|black\b|rgb\(\s*0\s*,\s*0\s*,\s*0\s*\))`)

// Recolor rewrites every black fill and stroke in svg to color.
func Recolor(svg []byte, color string) []byte {
	replacement := "${1}" + strings.ReplaceAll(color, "$", "$$")
	return blackPaint.ReplaceAll(svg, []byte(replacement))
}

// VariantName is the file name of the color variant of an icon.
func VariantName(file, colorName string) string {
	base := filepath.Base(file)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "--" + colorName + ext
}

// Icons builds the colorized, plain SVG and PNG icon sets side by side.
func (b *Builder) Icons() pipeline.Step {
	return pipeline.Parallel(
		pipeline.Func("icons:colorize", b.buildColorizedIcons),
		pipeline.Func("icons:normal", b.buildNormalIcons),
		pipeline.Func("icons:png", b.buildPNGIcons),
	)
}

// buildColorizedIcons writes one variant of every source icon per configured
// color, then optimizes the variants in place. Each color is one unit of
// work in a bounded batch.
func (b *Builder) buildColorizedIcons(ctx context.Context) error {
	colorize := b.cfg.Icons.Colorize
	files, err := collect(colorize.Src, svgExts)
	if err != nil {
		return err
	}
	if len(files) == 0 || len(colorize.Colors) == 0 {
		return nil
	}

	sources := make(map[string][]byte, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("icons:colorize: %w", err)
		}
		sources[f] = data
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Parallelism)
	for _, name := range colorize.ColorNames() {
		g.Go(func() error {
			return b.colorVariant(gctx, colorize, name, files, sources)
		})
	}
	return g.Wait()
}

func (b *Builder) colorVariant(ctx context.Context, colorize config.ColorizeConfig, name string, files []string, sources map[string][]byte) error {
	color := colorize.Colors[name]
	var written []string
	for _, f := range files {
		dest, err := destFor(colorize.Src, colorize.Dest, filepath.Join(filepath.Dir(f), VariantName(f, name)))
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("icons:colorize: %w", err)
		}
		if err := os.WriteFile(dest, Recolor(sources[f], color), 0o644); err != nil {
			return fmt.Errorf("icons:colorize: %w", err)
		}
		written = append(written, dest)
	}

	b.log.WithFields(logrus.Fields{
		"color": name,
		"icons": len(written),
	}).Debug("Generated color variants")
	return b.optimizeTree(ctx, "icons:colorize", colorize.Dest, colorize.Dest, written, &b.cfg.Icons.Optimization.SVG)
}

func (b *Builder) buildNormalIcons(ctx context.Context) error {
	normal := b.cfg.Icons.Normal
	files, err := collect(normal.Src, svgExts)
	if err != nil {
		return err
	}
	return b.optimizeTree(ctx, "icons:normal", normal.Src, normal.Dest, files, &b.cfg.Icons.Optimization.SVG)
}

func (b *Builder) buildPNGIcons(ctx context.Context) error {
	png := b.cfg.Icons.PNG
	files, err := collect(png.Src, pngExts)
	if err != nil {
		return err
	}
	return b.optimizeTree(ctx, "icons:png", png.Src, png.Dest, files, nil)
}

// optimizeTree optimizes files directory by directory so that their layout
// under srcRoot is mirrored under destRoot.
func (b *Builder) optimizeTree(ctx context.Context, tool, srcRoot, destRoot string, files []string, svg *config.SVGOptimization) error {
	groups, dirs := groupByDir(srcRoot, files)
	for _, dir := range dirs {
		if err := b.optimize(ctx, tool, groups[dir], filepath.Join(destRoot, dir), svg); err != nil {
			return err
		}
	}
	return nil
}

// CleanIcons removes every icon destination.
func (b *Builder) CleanIcons() pipeline.Step {
	return pipeline.Func("icons:clean", func(ctx context.Context) error {
		icons := b.cfg.Icons
		for _, dir := range []string{icons.Normal.Dest, icons.Colorize.Dest, icons.PNG.Dest} {
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
		}
		return nil
	})
}
