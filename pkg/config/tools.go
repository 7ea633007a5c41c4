package config

import (
	"fmt"
	"strings"
)

// FilesPlaceholder is a whole argument that expands to the input file list.
const FilesPlaceholder = "{files}"

// Command is an argv template for an external tool. Arguments may contain
// {src}, {dest}, {out}, {config} and {style} placeholders; an argument that is
// exactly {files} is replaced by the input file list.
type Command []string

// Expand substitutes vars and files into the template and splits off the
// executable name.
func (c Command) Expand(vars map[string]string, files []string) (string, []string, error) {
	if len(c) == 0 {
		return "", nil, fmt.Errorf("empty command template")
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	replacer := strings.NewReplacer(pairs...)

	argv := make([]string, 0, len(c)+len(files))
	for _, arg := range c {
		if arg == FilesPlaceholder {
			argv = append(argv, files...)
			continue
		}
		argv = append(argv, replacer.Replace(arg))
	}
	if len(argv) == 0 {
		return "", nil, fmt.Errorf("command %q expanded to nothing", strings.Join(c, " "))
	}
	return argv[0], argv[1:], nil
}

// String renders the template for logs and listings.
func (c Command) String() string {
	return strings.Join(c, " ")
}

// Tools holds the command templates for every external tool the pipeline
// delegates to.
type Tools struct {
	ImageOptimizer Command `yaml:"image_optimizer" json:"image_optimizer"`
	Sass           Command `yaml:"sass" json:"sass"`
	Autoprefixer   Command `yaml:"autoprefixer" json:"autoprefixer"`
	CSSMinifier    Command `yaml:"css_minifier" json:"css_minifier"`
	Stylelint      Command `yaml:"stylelint" json:"stylelint"`
	Eslint         Command `yaml:"eslint" json:"eslint"`
	Babel          Command `yaml:"babel" json:"babel"`
	JSMinifier     Command `yaml:"js_minifier" json:"js_minifier"`
}

// DefaultTools returns npx-based invocations of the usual node tooling.
func DefaultTools() Tools {
	return Tools{
		ImageOptimizer: Command{"npx", "imagemin", FilesPlaceholder, "--out-dir={dest}"},
		Sass:           Command{"npx", "sass", "--style={style}", "--load-path=node_modules", "--embed-source-map", "--no-error-css", "{src}:{dest}"},
		Autoprefixer:   Command{"npx", "postcss", FilesPlaceholder, "--use", "autoprefixer", "--replace", "--map"},
		CSSMinifier:    Command{"npx", "cleancss", "-o", "{out}", "{src}"},
		Stylelint:      Command{"npx", "stylelint", FilesPlaceholder, "--config={config}", "--config-basedir=node_modules", "--fix", "--formatter=verbose"},
		Eslint:         Command{"npx", "eslint", "--fix", FilesPlaceholder},
		Babel:          Command{"npx", "babel", "{src}", "--out-file={out}", "--source-maps=inline", "--presets=@babel/preset-env"},
		JSMinifier:     Command{"npx", "uglifyjs", "{src}", "-o", "{out}"},
	}
}
