// Package visual drives BackstopJS visual regression runs: it assembles the
// scenario list, synthesizes the per-run config, provisions authenticated
// sessions and wraps each engine invocation with cleanup and notification.
package visual

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattsolo1/grove-assets/pkg/config"
)

const (
	// ScenarioFileExt is the extension of scenario group files.
	ScenarioFileExt = ".json"
	// CookieFileExt is the extension of per-user cookie files.
	CookieFileExt = ".json"
	// URLPlaceholder in a scenario URL is replaced by the configured base URL.
	URLPlaceholder = "{url}"
)

// ScenarioFileError reports a scenario group file that could not be parsed.
type ScenarioFileError struct {
	File string
	Err  error
}

func (e *ScenarioFileError) Error() string {
	return fmt.Sprintf("parse scenario file %s: %v", e.File, e.Err)
}

func (e *ScenarioFileError) Unwrap() error {
	return e.Err
}

// Catalog reads scenario groups from a directory of description files.
type Catalog struct {
	Dir        string
	CookiesDir string
	User       string
	BaseURL    string
}

// NewCatalog creates a catalog from the visual regression settings.
func NewCatalog(cfg *config.Config) *Catalog {
	return &Catalog{
		Dir:        cfg.Backstop.ScenariosDir(),
		CookiesDir: cfg.Backstop.CookiesDir(),
		User:       cfg.VisualRegression.User,
		BaseURL:    cfg.URL,
	}
}

// CookiePath is the cookie file scenarios use for the catalog's user.
func (c *Catalog) CookiePath() string {
	return filepath.Join(c.CookiesDir, c.User+CookieFileExt)
}

type scenarioFile struct {
	Scenarios []Scenario `json:"scenarios"`
}

// BuildScenariosList returns the scenarios of every group when group is
// "all", otherwise only those of the named group. Files are read in
// directory order and scenarios keep their in-file order. Every scenario is
// stamped with the cookie path, its "(k of n)" position in the full list and
// its resolved URL. An unknown group yields an empty list.
func (c *Catalog) BuildScenariosList(group string) ([]Scenario, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory: %w", err)
	}

	scenarios := []Scenario{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ScenarioFileExt) {
			continue
		}
		if group != config.AllGroups && name != group+ScenarioFileExt {
			continue
		}

		path := filepath.Join(c.Dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading scenario file: %w", err)
		}
		var file scenarioFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, &ScenarioFileError{File: path, Err: err}
		}
		scenarios = append(scenarios, file.Scenarios...)
	}

	cookiePath := c.CookiePath()
	total := len(scenarios)
	for i := range scenarios {
		scenarios[i].CookiePath = cookiePath
		scenarios[i].Count = fmt.Sprintf("(%d of %d)", i+1, total)
		scenarios[i].URL = strings.ReplaceAll(scenarios[i].URL, URLPlaceholder, c.BaseURL)
	}
	return scenarios, nil
}
