package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/exec"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	"github.com/mattsolo1/grove-core/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Backstop.Dir = t.TempDir()
	return newApp(cfg, &exec.MockCommandExecutor{})
}

func TestComposeTasks(t *testing.T) {
	r := testApp(t).registry()

	single, err := composeTasks(r, []string{"fonts"}, false)
	require.NoError(t, err)
	g, err := pipeline.Compile(single)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	parallel, err := composeTasks(r, []string{"fonts", "images"}, false)
	require.NoError(t, err)
	g, err = pipeline.Compile(parallel)
	require.NoError(t, err)
	plan, err := g.GetExecutionPlan()
	require.NoError(t, err)
	assert.Len(t, plan.Stages, 1)

	series, err := composeTasks(r, []string{"fonts", "images"}, true)
	require.NoError(t, err)
	g, err = pipeline.Compile(series)
	require.NoError(t, err)
	plan, err = g.GetExecutionPlan()
	require.NoError(t, err)
	assert.Len(t, plan.Stages, 2)

	_, err = composeTasks(r, []string{"fonts", "sprites"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown task "sprites"`)
}

func TestDescribeTasks(t *testing.T) {
	infos, err := describeTasks(testApp(t).registry())
	require.NoError(t, err)

	byName := make(map[string]taskInfo)
	for _, info := range infos {
		byName[info.Name] = info
	}
	require.Contains(t, byName, "styles")
	assert.Equal(t, 3, byName["styles"].Steps)
	assert.Equal(t, 3, byName["styles"].Stages)
	assert.True(t, byName["watch"].Default)
	assert.False(t, byName["build"].Default)
	assert.Contains(t, byName, "vstest")
}

func TestPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTasks(&buf, []taskInfo{
		{Name: "fonts", Description: "Copy font files", Steps: 1, Stages: 1},
		{Name: "watch", Description: "Rebuild", Steps: 1, Stages: 1, Default: true},
	}))

	out := buf.String()
	assert.Contains(t, out, "TASK")
	assert.Contains(t, out, "Copy font files")
	assert.Contains(t, out, "watch (default)")
}

func TestWriteConfig(t *testing.T) {
	cfg := config.Default()

	var yamlOut bytes.Buffer
	require.NoError(t, writeConfig(&yamlOut, cfg, false))
	var fromYAML config.Config
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &fromYAML))
	assert.Equal(t, cfg.VisualRegression, fromYAML.VisualRegression)

	var jsonOut bytes.Buffer
	require.NoError(t, writeConfig(&jsonOut, cfg, true))
	var fromJSON map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &fromJSON))
	assert.Equal(t, "http://localhost", fromJSON["url"])
	assert.Contains(t, jsonOut.String(), `"visual_regression"`)
}

func TestApplyVisualFlags(t *testing.T) {
	t.Cleanup(func() { vrUser, vrGroup, vrScenario = "", "", "" })

	cfg := config.Default()
	applyVisualFlags(cfg)
	assert.Equal(t, config.GuestUser, cfg.VisualRegression.User)
	assert.Equal(t, config.AllGroups, cfg.VisualRegression.Group)

	vrUser, vrGroup, vrScenario = "admin", "home", "login"
	applyVisualFlags(cfg)
	assert.Equal(t, "admin", cfg.VisualRegression.User)
	assert.Equal(t, "home", cfg.VisualRegression.Group)
	assert.Equal(t, "login", cfg.VisualRegression.EffectiveGroup())
}

func TestNewVRCmd_Subcommands(t *testing.T) {
	vr := NewVRCmd()
	var names []string
	for _, c := range vr.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"reference", "test", "approve", "report", "status"}, names)

	test, _, err := vr.Find([]string{"test"})
	require.NoError(t, err)
	assert.NotNil(t, test.Flags().Lookup("filter"))
}

func TestVersionCmd_JSON(t *testing.T) {
	root := cli.NewStandardCommand("assets", "test")
	root.AddCommand(NewVersionCmd())
	root.SetArgs([]string{"version", "--json"})

	out := captureStdout(t, func() {
		require.NoError(t, root.Execute())
	})
	assert.True(t, strings.Contains(out, `"version": "dev"`), out)
}

func TestRunCmd_FilterFlag(t *testing.T) {
	cmd := NewRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--filter=Login", "--series"}))
	t.Cleanup(func() {
		runFilter = ""
		runSeries = false
	})

	assert.Equal(t, "Login", runFilter)
	assert.True(t, runSeries)

	_, err := testApp(t).registry().Get("vstest")
	assert.NoError(t, err)
}
