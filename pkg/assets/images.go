package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"golang.org/x/sync/errgroup"
)

// imageBatchSize bounds the argument list of one optimizer invocation.
const imageBatchSize = 50

var (
	imageExts = withExt(".jpg", ".jpeg", ".gif", ".png", ".svg", ".ico")
	svgExts   = withExt(".svg")
	pngExts   = withExt(".png")
)

// Images optimizes every image into the images destination, flattened.
func (b *Builder) Images() pipeline.Step {
	return pipeline.Func("images", b.buildImages)
}

func (b *Builder) buildImages(ctx context.Context) error {
	files, err := collect(b.cfg.Images.Src, imageExts)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		b.log.WithField("src", b.cfg.Images.Src).Debug("No images to optimize")
		return nil
	}
	return b.optimize(ctx, "images", files, b.cfg.Images.Dest, &b.cfg.Images.Optimization.SVG)
}

// optimize runs the image optimizer over files in bounded parallel batches,
// writing into dest. svg settings are passed through SVGO_OPTIONS when set.
func (b *Builder) optimize(ctx context.Context, tool string, files []string, dest string, svg *config.SVGOptimization) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}

	var env []string
	if svg != nil {
		opts, err := json.Marshal(svg)
		if err != nil {
			return fmt.Errorf("%s: encode svg options: %w", tool, err)
		}
		env = append(env, "SVGO_OPTIONS="+string(opts))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Parallelism)
	for _, batch := range chunk(files, imageBatchSize) {
		g.Go(func() error {
			return b.runTool(gctx, tool, b.cfg.Tools.ImageOptimizer, map[string]string{"dest": dest}, batch, env...)
		})
	}
	return g.Wait()
}

// CleanImages removes the images destination.
func (b *Builder) CleanImages() pipeline.Step {
	return pipeline.Func("images:clean", func(ctx context.Context) error {
		return os.RemoveAll(b.cfg.Images.Dest)
	})
}
