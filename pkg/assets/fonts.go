package assets

import (
	"context"
	"fmt"
	"os"

	"github.com/mattsolo1/grove-assets/pkg/pipeline"
)

var fontExts = withExt(".eot", ".ttf", ".woff", ".woff2", ".otf", ".svg")

// Fonts copies every font file into the fonts destination, flattened.
func (b *Builder) Fonts() pipeline.Step {
	return pipeline.Func("fonts", b.buildFonts)
}

func (b *Builder) buildFonts(ctx context.Context) error {
	files, err := collect(b.cfg.Fonts.Src, allFiles)
	if err != nil {
		return err
	}
	if err := copyFlat(files, b.cfg.Fonts.Dest); err != nil {
		return fmt.Errorf("fonts: %w", err)
	}
	b.log.WithField("files", len(files)).Info("Copied fonts")
	return nil
}

// CleanFonts removes the fonts destination.
func (b *Builder) CleanFonts() pipeline.Step {
	return pipeline.Func("fonts:clean", func(ctx context.Context) error {
		return os.RemoveAll(b.cfg.Fonts.Dest)
	})
}
