package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mattsolo1/grove-assets/pkg/pipeline"
)

// VendorFiles lists the dist files copied for one vendor package, relative
// to node_modules.
type VendorFiles struct {
	CSS []string
	JS  []string
}

// VendorPackages are the vendor packages that can be enabled in config.
var VendorPackages = map[string]VendorFiles{
	"bootstrap": {JS: []string{
		"bootstrap/dist/js/bootstrap.js",
		"bootstrap/dist/js/bootstrap.js.map",
		"bootstrap/dist/js/bootstrap.min.js",
		"bootstrap/dist/js/bootstrap.min.js.map",
	}},
	"jquery": {JS: []string{
		"jquery/dist/jquery.js",
		"jquery/dist/jquery.min.js",
		"jquery/dist/jquery.min.map",
	}},
	"popper": {JS: []string{
		"popper.js/dist/umd/popper.js",
		"popper.js/dist/umd/popper.js.map",
		"popper.js/dist/umd/popper.min.js",
		"popper.js/dist/umd/popper.min.js.map",
	}},
	"mdbootstrap": {JS: []string{
		"mdbootstrap/js/mdb.js",
		"mdbootstrap/js/mdb.min.js",
	}},
}

// Vendor replaces the vendor copies with the enabled packages' dist files.
func (b *Builder) Vendor() pipeline.Step {
	return pipeline.Series(
		b.CleanVendor(),
		pipeline.Parallel(
			pipeline.Func("vendor:js", b.copyVendorJS),
			pipeline.Func("vendor:css", b.copyVendorCSS),
		),
	)
}

// vendorFiles returns the enabled files of the given kind in package order.
func (b *Builder) vendorFiles(pick func(VendorFiles) []string, enabled func(name string) bool) ([]string, error) {
	names := make([]string, 0, len(b.cfg.Vendors))
	for name := range b.cfg.Vendors {
		names = append(names, name)
	}
	sort.Strings(names)

	var files []string
	for _, name := range names {
		if !enabled(name) {
			continue
		}
		pkg, ok := VendorPackages[name]
		if !ok {
			return nil, fmt.Errorf("unknown vendor package %q", name)
		}
		for _, f := range pick(pkg) {
			files = append(files, filepath.Join(b.nodeModules, f))
		}
	}
	return files, nil
}

func (b *Builder) copyVendorJS(ctx context.Context) error {
	files, err := b.vendorFiles(
		func(v VendorFiles) []string { return v.JS },
		func(name string) bool { return b.cfg.Vendors[name].JS },
	)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		b.log.Info("No vendor js selected.")
		return nil
	}
	return copyFlat(files, filepath.Join(b.cfg.JS.Dest, VendorDir))
}

func (b *Builder) copyVendorCSS(ctx context.Context) error {
	files, err := b.vendorFiles(
		func(v VendorFiles) []string { return v.CSS },
		func(name string) bool { return b.cfg.Vendors[name].CSS },
	)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		b.log.Info("No vendor css selected.")
		return nil
	}
	return copyFlat(files, filepath.Join(b.cfg.Stylesheets.CSS.Dest, VendorDir))
}

// CleanVendor removes the vendor copies from the css and js destinations.
func (b *Builder) CleanVendor() pipeline.Step {
	return pipeline.Func("vendor:clean", func(ctx context.Context) error {
		for _, dir := range []string{
			filepath.Join(b.cfg.Stylesheets.CSS.Dest, VendorDir),
			filepath.Join(b.cfg.JS.Dest, VendorDir),
		} {
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
		}
		return nil
	})
}
