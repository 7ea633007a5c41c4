package visual

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/notify"
	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/sirupsen/logrus"
)

// NotificationTitle is the title of every run notification.
const NotificationTitle = "BackstopJS"

// Outcome is the result of one orchestration run.
type Outcome struct {
	RunID      string
	Command    Command
	Group      string
	User       string
	Success    bool
	Err        error
	FinishedAt time.Time
}

func (o Outcome) failed(err error) Outcome {
	o.Success = false
	o.Err = err
	return o
}

func (o Outcome) succeeded() Outcome {
	o.Success = true
	o.Err = nil
	return o
}

// Recorder persists finished outcomes.
type Recorder interface {
	Record(o Outcome) error
}

// Orchestrator runs BackstopJS commands against a synthesized config.
type Orchestrator struct {
	vr          config.VisualRegressionConfig
	synth       *Synthesizer
	provisioner SessionProvisioner
	engine      Engine
	notifier    notify.Notifier
	recorder    Recorder
	tempPath    string
	log         *logrus.Entry
}

// Deps are the collaborators an Orchestrator delegates to. Recorder is
// optional.
type Deps struct {
	Provisioner SessionProvisioner
	Engine      Engine
	Notifier    notify.Notifier
	Recorder    Recorder
}

// NewOrchestrator creates an orchestrator for cfg.
func NewOrchestrator(cfg *config.Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		vr:          cfg.VisualRegression,
		synth:       NewSynthesizer(cfg),
		provisioner: deps.Provisioner,
		engine:      deps.Engine,
		notifier:    deps.Notifier,
		recorder:    deps.Recorder,
		tempPath:    cfg.Backstop.TempConfigPath(),
		log:         grovelogging.NewLogger("grove-assets.visual"),
	}
}

// TempConfigPath is where the per-run config is written.
func (o *Orchestrator) TempConfigPath() string {
	return o.tempPath
}

// Run executes one BackstopJS command. It provisions a session for
// non-guest users, writes the run config, invokes the engine with the
// optional filter and then, whatever happened, removes the run config and
// sends exactly one notification.
func (o *Orchestrator) Run(ctx context.Context, command Command, filter string) error {
	outcome := Outcome{
		RunID:   uuid.New().String(),
		Command: command,
		Group:   o.synth.Group,
		User:    o.vr.User,
	}
	log := o.log.WithFields(logrus.Fields{
		"run_id":  outcome.RunID,
		"command": command,
		"group":   outcome.Group,
		"user":    outcome.User,
	})

	if err := CreateLockFile(o.tempPath, os.Getpid()); err != nil {
		// The run config on disk belongs to whoever holds the lock.
		outcome = outcome.failed(err)
		outcome.FinishedAt = time.Now()
		o.notify(log, outcome)
		return fmt.Errorf("backstop %s: %w", command, err)
	}

	log.Info("Starting visual regression run")
	outcome = o.execute(ctx, log, outcome, filter)
	outcome.FinishedAt = time.Now()
	o.finalize(log, outcome)

	if !outcome.Success {
		return fmt.Errorf("backstop %s failed: %w", command, outcome.Err)
	}
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, log *logrus.Entry, outcome Outcome, filter string) Outcome {
	if o.vr.RequiresLogin() {
		if o.provisioner == nil {
			return outcome.failed(fmt.Errorf("user %s requires login but no session provisioner is configured", o.vr.User))
		}
		if err := o.provisioner.WriteCookies(ctx); err != nil {
			return outcome.failed(fmt.Errorf("provision session: %w", err))
		}
	}

	if err := o.synth.WriteTempConfig(o.tempPath); err != nil {
		return outcome.failed(fmt.Errorf("synthesize run config: %w", err))
	}
	log.WithField("config", o.tempPath).Debug("Wrote run config")

	if err := o.engine.Run(ctx, outcome.Command, o.tempPath, filter); err != nil {
		return outcome.failed(err)
	}
	return outcome.succeeded()
}

// finalize is the single exit point shared by both outcomes.
func (o *Orchestrator) finalize(log *logrus.Entry, outcome Outcome) {
	o.removeTempConfig(log)
	o.notify(log, outcome)

	if err := RemoveLockFile(o.tempPath); err != nil {
		log.WithError(err).Warn("Failed to remove run lock")
	}
	if o.recorder != nil {
		if err := o.recorder.Record(outcome); err != nil {
			log.WithError(err).Warn("Failed to record run outcome")
		}
	}

	entry := log.WithField("success", outcome.Success)
	if outcome.Err != nil {
		entry = entry.WithError(outcome.Err)
	}
	entry.Info("Visual regression run finished")
}

func (o *Orchestrator) removeTempConfig(log *logrus.Entry) {
	if err := os.Remove(o.tempPath); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to remove run config")
	}
}

func (o *Orchestrator) notify(log *logrus.Entry, outcome Outcome) {
	if o.notifier == nil {
		return
	}
	message := "Success"
	if !outcome.Success {
		message = "Error"
	}
	err := o.notifier.Notify(notify.Notification{
		Title:   NotificationTitle,
		Message: message,
		Success: outcome.Success,
		Sound:   "Beep",
	})
	if err != nil {
		log.WithError(err).Warn("Failed to send notification")
	}
}
