package visual

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRunConfig(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var content map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &content))
	return content
}

func TestCreateTempConfig_AllGroups(t *testing.T) {
	cfg := newBackstopDir(t)

	data, err := NewSynthesizer(cfg).CreateTempConfig()
	require.NoError(t, err)

	content := decodeRunConfig(t, data)
	scenarios, ok := content["scenarios"].([]interface{})
	require.True(t, ok)
	assert.Len(t, scenarios, 3)

	paths := content["paths"].(map[string]interface{})
	assert.Equal(t, "tests/backstop/all/bitmaps_reference", paths["bitmaps_reference"])
	assert.Equal(t, "tests/backstop/all/ci_report", paths["ci_report"])
	assert.Equal(t, "tests/backstop/engine_scripts", paths["engine_scripts"])
	assert.Equal(t, "puppeteer", content["engine"])
}

func TestCreateTempConfig_ScenarioOverride(t *testing.T) {
	cfg := newBackstopDir(t)
	cfg.VisualRegression.Scenario = "login"

	data, err := NewSynthesizer(cfg).CreateTempConfig()
	require.NoError(t, err)

	content := decodeRunConfig(t, data)
	assert.Len(t, content["scenarios"], 2)

	paths := content["paths"].(map[string]interface{})
	for _, key := range outputPathKeys {
		value := paths[key].(string)
		assert.NotContains(t, value, GroupPlaceholder)
		assert.True(t, strings.Contains(value, "/login/"), "path %s = %s", key, value)
	}
}

func TestCreateTempConfig_MissingTemplate(t *testing.T) {
	cfg := newBackstopDir(t)
	require.NoError(t, os.Remove(cfg.Backstop.TemplatePath()))

	_, err := NewSynthesizer(cfg).CreateTempConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config template")
}

func TestCreateTempConfig_TemplateErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		errorMsg string
	}{
		{name: "malformed", template: `{"paths": `, errorMsg: "parse config template"},
		{name: "not an object", template: `[]`, errorMsg: "is not an object"},
		{name: "no paths", template: `{"id": "x"}`, errorMsg: "no paths object"},
		{name: "paths not an object", template: `{"paths": "x"}`, errorMsg: "no paths object"},
		{name: "missing key", template: `{"paths": {"bitmaps_reference": "{group}"}}`, errorMsg: "paths.bitmaps_test"},
		{name: "non-string path", template: `{"paths": {"bitmaps_reference": 1, "bitmaps_test": "", "html_report": "", "ci_report": ""}}`, errorMsg: "paths.bitmaps_reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newBackstopDir(t)
			writeFile(t, cfg.Backstop.TemplatePath(), tt.template)

			_, err := NewSynthesizer(cfg).CreateTempConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestWriteTempConfig(t *testing.T) {
	cfg := newBackstopDir(t)
	path := filepath.Join(t.TempDir(), "backstop.temp.json")

	require.NoError(t, NewSynthesizer(cfg).WriteTempConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, decodeRunConfig(t, data)["scenarios"], 3)
}

func TestReportDir(t *testing.T) {
	cfg := newBackstopDir(t)
	cfg.VisualRegression.Group = "home"

	dir, err := NewSynthesizer(cfg).ReportDir()
	require.NoError(t, err)
	assert.Equal(t, "tests/backstop/home/html_report", dir)
}

func TestCreateTempConfig_PreservesTemplate(t *testing.T) {
	cfg := newBackstopDir(t)
	writeFile(t, cfg.Backstop.TemplatePath(), `{
  "id": "site",
  "asyncCaptureLimit": 9007199254740993,
  "misMatchThreshold": 0.10,
  "paths": {
    "html_report": "r/{group}",
    "bitmaps_test": "t/{group}",
    "ci_report": "c/{group}",
    "bitmaps_reference": "b/{group}"
  },
  "scenarios": [],
  "engine": "puppeteer"
}`)

	data, err := NewSynthesizer(cfg).CreateTempConfig()
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `"asyncCaptureLimit": 9007199254740993`)
	assert.Contains(t, out, `"misMatchThreshold": 0.10`)

	order := []string{`"id"`, `"asyncCaptureLimit"`, `"paths"`, `"html_report"`, `"bitmaps_test"`, `"ci_report"`, `"bitmaps_reference"`, `"scenarios"`, `"engine"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(out, key)
		require.Greater(t, idx, last, "key %s out of order", key)
		last = idx
	}
	assert.Contains(t, out, `"html_report": "r/all"`)
}
