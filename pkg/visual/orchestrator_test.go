package visual

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Notify(msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

// fakeEngine checks that the run config exists while the engine runs.
type fakeEngine struct {
	err        error
	calls      int
	command    Command
	configPath string
	filter     string
	sawConfig  bool
}

func (e *fakeEngine) Run(_ context.Context, command Command, configPath, filter string) error {
	e.calls++
	e.command = command
	e.configPath = configPath
	e.filter = filter
	_, err := os.Stat(configPath)
	e.sawConfig = err == nil
	return e.err
}

type fakeProvisioner struct {
	calls int
	err   error
}

func (p *fakeProvisioner) WriteCookies(context.Context) error {
	p.calls++
	return p.err
}

type memoryRecorder struct {
	outcomes []Outcome
}

func (r *memoryRecorder) Record(o Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return nil
}

type orchestratorFixture struct {
	cfg         *config.Config
	engine      *fakeEngine
	notifier    *recordingNotifier
	provisioner *fakeProvisioner
	recorder    *memoryRecorder
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	return &orchestratorFixture{
		cfg:         newBackstopDir(t),
		engine:      &fakeEngine{},
		notifier:    &recordingNotifier{},
		provisioner: &fakeProvisioner{},
		recorder:    &memoryRecorder{},
	}
}

func (f *orchestratorFixture) orchestrator() *Orchestrator {
	return NewOrchestrator(f.cfg, Deps{
		Provisioner: f.provisioner,
		Engine:      f.engine,
		Notifier:    f.notifier,
		Recorder:    f.recorder,
	})
}

func assertNoRunFiles(t *testing.T, o *Orchestrator) {
	t.Helper()
	_, err := os.Stat(o.TempConfigPath())
	assert.True(t, os.IsNotExist(err), "run config should be removed")
	_, err = os.Stat(o.TempConfigPath() + ".lock")
	assert.True(t, os.IsNotExist(err), "run lock should be removed")
}

func TestOrchestrator_Success(t *testing.T) {
	f := newOrchestratorFixture(t)
	o := f.orchestrator()

	require.NoError(t, o.Run(context.Background(), CommandTest, "Homepage"))

	assert.Equal(t, 1, f.engine.calls)
	assert.True(t, f.engine.sawConfig)
	assert.Equal(t, CommandTest, f.engine.command)
	assert.Equal(t, o.TempConfigPath(), f.engine.configPath)
	assert.Equal(t, "Homepage", f.engine.filter)
	assert.Equal(t, 0, f.provisioner.calls, "guest runs need no session")

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notify.Notification{Title: "BackstopJS", Message: "Success", Success: true, Sound: "Beep"}, f.notifier.sent[0])

	require.Len(t, f.recorder.outcomes, 1)
	outcome := f.recorder.outcomes[0]
	assert.True(t, outcome.Success)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, "all", outcome.Group)
	assert.NotEmpty(t, outcome.RunID)
	assert.False(t, outcome.FinishedAt.IsZero())

	assertNoRunFiles(t, o)
}

func TestOrchestrator_EngineFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.engine.err = errors.New("exit status 1")
	o := f.orchestrator()

	err := o.Run(context.Background(), CommandTest, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backstop test failed")
	assert.ErrorIs(t, err, f.engine.err)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Error", f.notifier.sent[0].Message)
	assert.False(t, f.notifier.sent[0].Success)
	require.Len(t, f.recorder.outcomes, 1)
	assert.False(t, f.recorder.outcomes[0].Success)

	assertNoRunFiles(t, o)
}

func TestOrchestrator_SynthesisFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	require.NoError(t, os.Remove(f.cfg.Backstop.TemplatePath()))
	o := f.orchestrator()

	err := o.Run(context.Background(), CommandReference, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesize run config")
	assert.Equal(t, 0, f.engine.calls)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Error", f.notifier.sent[0].Message)

	assertNoRunFiles(t, o)
}

func TestOrchestrator_ProvisionsNonGuestUser(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.cfg.VisualRegression.User = "admin"
	o := f.orchestrator()

	require.NoError(t, o.Run(context.Background(), CommandApprove, ""))
	assert.Equal(t, 1, f.provisioner.calls)
	assert.Equal(t, 1, f.engine.calls)
	assert.Equal(t, "admin", f.recorder.outcomes[0].User)
}

func TestOrchestrator_ProvisionFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.cfg.VisualRegression.User = "admin"
	f.provisioner.err = errors.New("login failed")
	o := f.orchestrator()

	err := o.Run(context.Background(), CommandTest, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provision session")
	assert.Equal(t, 0, f.engine.calls)
	assert.Len(t, f.notifier.sent, 1)
	assertNoRunFiles(t, o)
}

func TestOrchestrator_MissingProvisioner(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.cfg.VisualRegression.User = "admin"
	o := NewOrchestrator(f.cfg, Deps{Engine: f.engine, Notifier: f.notifier})

	err := o.Run(context.Background(), CommandTest, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session provisioner")
	assert.Len(t, f.notifier.sent, 1)
}

func TestOrchestrator_ScenarioOverridesGroup(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.cfg.VisualRegression.Group = "home"
	f.cfg.VisualRegression.Scenario = "login"
	o := f.orchestrator()

	require.NoError(t, o.Run(context.Background(), CommandTest, ""))
	assert.Equal(t, "login", f.recorder.outcomes[0].Group)
}

func TestOrchestrator_RunInProgress(t *testing.T) {
	f := newOrchestratorFixture(t)
	o := f.orchestrator()

	// Another live run owns the lock and its config.
	require.NoError(t, CreateLockFile(o.TempConfigPath(), os.Getpid()))
	require.NoError(t, os.WriteFile(o.TempConfigPath(), []byte(`{"owner":"other"}`), 0o644))

	err := o.Run(context.Background(), CommandTest, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, 0, f.engine.calls)
	require.Len(t, f.notifier.sent, 1)
	assert.False(t, f.notifier.sent[0].Success)

	data, err := os.ReadFile(o.TempConfigPath())
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"other"}`, string(data))
	assert.Empty(t, f.recorder.outcomes)

	require.NoError(t, RemoveLockFile(o.TempConfigPath()))
}
