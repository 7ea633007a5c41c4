// Package config holds the asset pipeline configuration and its layered
// loading: built-in defaults, the "assets" extension in grove.yml, then an
// optional override file.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
)

// GuestUser is the user identity that means "no authentication required".
const GuestUser = "guest"

// AllGroups selects every scenario group.
const AllGroups = "all"

// DirPair is a source directory and the directory its output lands in.
type DirPair struct {
	Src  string `yaml:"src" json:"src"`
	Dest string `yaml:"dest" json:"dest"`
}

// SVGOptimization carries the svgo plugin toggles handed to the image
// optimizer as JSON in the SVGO_OPTIONS environment variable.
type SVGOptimization struct {
	CleanupIDs                 bool `yaml:"cleanup_ids" json:"cleanup_ids"`
	RemoveViewBox              bool `yaml:"remove_view_box" json:"remove_view_box"`
	RemoveUselessStrokeAndFill bool `yaml:"remove_useless_stroke_and_fill" json:"remove_useless_stroke_and_fill"`
	RemoveXMLProcInst          bool `yaml:"remove_xml_proc_inst" json:"remove_xml_proc_inst"`
}

// Optimization groups optimizer settings per file kind.
type Optimization struct {
	SVG SVGOptimization `yaml:"svg" json:"svg"`
}

// ImagesConfig configures the images task.
type ImagesConfig struct {
	Src          string       `yaml:"src" json:"src"`
	Dest         string       `yaml:"dest" json:"dest"`
	Optimization Optimization `yaml:"optimization" json:"optimization"`
}

// ColorizeConfig configures recolored SVG icon variants.
type ColorizeConfig struct {
	Src    string            `yaml:"src" json:"src"`
	Dest   string            `yaml:"dest" json:"dest"`
	Colors map[string]string `yaml:"colors" json:"colors"`
}

// IconsConfig configures the icons task.
type IconsConfig struct {
	Normal       DirPair        `yaml:"normal" json:"normal"`
	Colorize     ColorizeConfig `yaml:"colorize" json:"colorize"`
	PNG          DirPair        `yaml:"png" json:"png"`
	Optimization Optimization   `yaml:"optimization" json:"optimization"`
}

// SassOptions mirrors the compiler options passed to sass.
type SassOptions struct {
	OutputStyle string `yaml:"output_style" json:"output_style"`
	Precision   int    `yaml:"precision" json:"precision"`
}

// SassConfig configures the scss sources.
type SassConfig struct {
	Src     string      `yaml:"src" json:"src"`
	Options SassOptions `yaml:"options" json:"options"`
}

// CSSConfig configures compiled stylesheet output.
type CSSConfig struct {
	Dest string `yaml:"dest" json:"dest"`
}

// StylesheetsConfig configures the styles task.
type StylesheetsConfig struct {
	Sass SassConfig `yaml:"sass" json:"sass"`
	CSS  CSSConfig  `yaml:"css" json:"css"`
}

// VendorToggle selects which parts of a vendor package are copied.
type VendorToggle struct {
	CSS bool `yaml:"css" json:"css"`
	JS  bool `yaml:"js" json:"js"`
}

// VisualRegressionConfig configures the BackstopJS workflow.
type VisualRegressionConfig struct {
	// User is the identity scenarios run as. GuestUser disables login.
	User string `yaml:"user" json:"user"`
	// Group is the default scenario group.
	Group string `yaml:"group" json:"group"`
	// Scenario overrides Group when non-empty.
	Scenario string `yaml:"scenario" json:"scenario"`
}

// BackstopConfig locates the BackstopJS files and the commands that drive a
// run.
type BackstopConfig struct {
	// Dir holds scenarios/, cookies/ and the config template.
	Dir string `yaml:"dir" json:"dir"`
	// LoginCommand prints a one-time login URL. {user} and {url} are substituted.
	LoginCommand string `yaml:"login_command" json:"login_command"`
	// Engine is the argv prefix used to invoke the diff engine.
	Engine Command `yaml:"engine" json:"engine"`
	// Headless controls whether the session browser is shown.
	Headless bool `yaml:"headless" json:"headless"`
}

// Config is the full pipeline configuration. It is built once per process and
// handed to every component that needs it.
type Config struct {
	URL              string                  `yaml:"url" json:"url"`
	SupportedBrowser []string                `yaml:"supported_browser" json:"supported_browser"`
	Parallelism      int                     `yaml:"parallelism" json:"parallelism"`
	Fonts            DirPair                 `yaml:"fonts" json:"fonts"`
	Images           ImagesConfig            `yaml:"images" json:"images"`
	Icons            IconsConfig             `yaml:"icons" json:"icons"`
	Stylesheets      StylesheetsConfig       `yaml:"stylesheets" json:"stylesheets"`
	JS               DirPair                 `yaml:"js" json:"js"`
	Vendors          map[string]VendorToggle `yaml:"vendors" json:"vendors"`
	VisualRegression VisualRegressionConfig  `yaml:"visual_regression" json:"visual_regression"`
	Backstop         BackstopConfig          `yaml:"backstop" json:"backstop"`
	Tools            Tools                   `yaml:"tools" json:"tools"`
}

// Default returns the built-in configuration.
func Default() *Config {
	svg := SVGOptimization{}
	return &Config{
		URL: "http://localhost",
		SupportedBrowser: []string{
			"Chrome >= 35",
			"Firefox >= 38",
			"Edge >= 12",
			"Explorer >= 10",
			"iOS >= 8",
			"Safari >= 8",
			"Android 2.3",
			"Android >= 4",
			"Opera >= 12",
		},
		Parallelism: 4,
		Fonts:       DirPair{Src: "./res/fonts", Dest: "./fonts"},
		Images: ImagesConfig{
			Src:          "./res/img",
			Dest:         "./img",
			Optimization: Optimization{SVG: svg},
		},
		Icons: IconsConfig{
			Normal: DirPair{Src: "./res/icons/normal", Dest: "./icons"},
			Colorize: ColorizeConfig{
				Src:  "./res/icons/colorize",
				Dest: "./icons",
				Colors: map[string]string{
					"black":        "#000",
					"white":        "#fff",
					"primary":      "#736b55",
					"secondary":    "#f1ead3",
					"success":      "#28a745",
					"info":         "#17a2b8",
					"warning":      "#ffc107",
					"danger":       "#dc3545",
					"light":        "#f8f9fa",
					"dark":         "#343a40",
					"action":       "#c3731e",
					"action_hover": "#772700",
				},
			},
			PNG:          DirPair{Src: "./res/icons/png", Dest: "./icons/png"},
			Optimization: Optimization{SVG: svg},
		},
		Stylesheets: StylesheetsConfig{
			Sass: SassConfig{
				Src:     "./res/scss",
				Options: SassOptions{OutputStyle: "expanded", Precision: 10},
			},
			CSS: CSSConfig{Dest: "./css"},
		},
		JS: DirPair{Src: "./res/js", Dest: "./js"},
		Vendors: map[string]VendorToggle{
			"bootstrap":   {CSS: false, JS: true},
			"jquery":      {CSS: false, JS: true},
			"mdbootstrap": {CSS: false, JS: true},
			"popper":      {CSS: false, JS: true},
		},
		VisualRegression: VisualRegressionConfig{
			User:  GuestUser,
			Group: AllGroups,
		},
		Backstop: BackstopConfig{
			Dir:          "./tests/backstop",
			LoginCommand: "lando drush user:login --name={user} --uri={url} --browser=0",
			Engine:       Command{"npx", "backstop"},
			Headless:     true,
		},
		Tools: DefaultTools(),
	}
}

// RequiresLogin reports whether runs need an authenticated session.
func (v VisualRegressionConfig) RequiresLogin() bool {
	return v.User != "" && v.User != GuestUser
}

// EffectiveGroup resolves the scenario group for a run.
func (v VisualRegressionConfig) EffectiveGroup() string {
	if v.Scenario != "" {
		return v.Scenario
	}
	if v.Group != "" {
		return v.Group
	}
	return AllGroups
}

// CookiesDir is where per-user session cookies are stored.
func (b BackstopConfig) CookiesDir() string {
	return filepath.Join(b.Dir, "cookies")
}

// ScenariosDir holds one scenario file per group.
func (b BackstopConfig) ScenariosDir() string {
	return filepath.Join(b.Dir, "scenarios")
}

// TemplatePath is the BackstopJS config template.
func (b BackstopConfig) TemplatePath() string {
	return filepath.Join(b.Dir, "backstop.tpl.json")
}

// TempConfigPath is the fixed location of the per-run config.
func (b BackstopConfig) TempConfigPath() string {
	return filepath.Join(b.Dir, "backstop.temp.json")
}

// ColorNames returns the icon color keys in sorted order.
func (c ColorizeConfig) ColorNames() []string {
	names := make([]string, 0, len(c.Colors))
	for name := range c.Colors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the settings that cannot be defaulted later on.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url must not be empty")
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	if c.Backstop.Dir == "" {
		return fmt.Errorf("backstop.dir must not be empty")
	}
	if len(c.Backstop.Engine) == 0 {
		return fmt.Errorf("backstop.engine must name a command")
	}
	for name, color := range c.Icons.Colorize.Colors {
		if color == "" {
			return fmt.Errorf("icons.colorize.colors.%s has no value", name)
		}
	}
	return nil
}
