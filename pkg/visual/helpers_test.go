package visual

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/stretchr/testify/require"
)

const loginScenarios = `{
  "scenarios": [
    {"label": "Login form", "url": "{url}/user/login", "selectors": ["form"]},
    {"label": "Password reset", "url": "{url}/user/password"}
  ]
}`

const homeScenarios = `{
  "scenarios": [
    {"label": "Homepage", "url": "{url}/", "delay": 500}
  ]
}`

const backstopTemplate = `{
  "id": "site",
  "viewports": [{"label": "desktop", "width": 1280, "height": 800}],
  "scenarios": [],
  "paths": {
    "bitmaps_reference": "tests/backstop/{group}/bitmaps_reference",
    "bitmaps_test": "tests/backstop/{group}/bitmaps_test",
    "engine_scripts": "tests/backstop/engine_scripts",
    "html_report": "tests/backstop/{group}/html_report",
    "ci_report": "tests/backstop/{group}/ci_report"
  },
  "engine": "puppeteer"
}`

// newBackstopDir lays out a backstop directory with the login and home
// groups and returns a config pointing at it.
func newBackstopDir(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))

	writeFile(t, filepath.Join(scenarios, "login.json"), loginScenarios)
	writeFile(t, filepath.Join(scenarios, "home.json"), homeScenarios)
	writeFile(t, filepath.Join(scenarios, "README.md"), "not a scenario file")
	writeFile(t, filepath.Join(dir, "backstop.tpl.json"), backstopTemplate)

	cfg := config.Default()
	cfg.URL = "http://site.test"
	cfg.Backstop.Dir = dir
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
