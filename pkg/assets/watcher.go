package assets

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mattsolo1/grove-assets/pkg/pipeline"
	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long a watched tree must stay quiet before its task
// is re-run.
const DefaultDebounce = 300 * time.Millisecond

// StepRunner executes a pipeline step.
type StepRunner interface {
	Run(ctx context.Context, step pipeline.Step) error
}

// WatchTarget re-runs Step whenever a matching file under one of Roots
// changes.
type WatchTarget struct {
	Name  string
	Roots []string
	Match func(rel string) bool
	Step  pipeline.Step
}

// Watcher rebuilds watch targets as their sources change. Bursts of events
// for one target collapse into a single run.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	targets  []WatchTarget
	runner   StepRunner
	debounce time.Duration
	pending  map[int]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	now      func() time.Time
	log      *logrus.Entry
}

// NewWatcher creates a watcher for targets. A debounce of zero uses
// DefaultDebounce.
func NewWatcher(targets []WatchTarget, runner StepRunner, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  fw,
		targets:  targets,
		runner:   runner,
		debounce: debounce,
		pending:  make(map[int]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		now:      time.Now,
		log:      grovelogging.NewLogger("grove-assets.watch"),
	}, nil
}

// Start watches every target root recursively and returns immediately.
// Roots that do not exist yet are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, target := range w.targets {
		for _, root := range target.Roots {
			if err := w.addTree(root); err != nil {
				w.log.WithError(err).WithField("root", root).Warn("Not watching missing source directory")
				continue
			}
			w.log.WithFields(logrus.Fields{
				"task": target.Name,
				"root": root,
			}).Info("Watching")
		}
	}

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.WithError(err).Error("Error closing watcher")
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("Watcher error")
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		// New directories are picked up so nested sources keep being watched.
		if err := w.addTree(event.Name); err != nil {
			w.log.WithError(err).WithField("path", event.Name).Debug("Could not watch new path")
		}
	}

	for i, target := range w.targets {
		if target.matches(event.Name) {
			w.pending[i] = w.now()
		}
	}
}

func (t WatchTarget) matches(path string) bool {
	for _, root := range t.Roots {
		rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if t.Match == nil || t.Match(filepath.ToSlash(rel)) {
			return true
		}
	}
	return false
}

// flush runs every target that has been quiet for the debounce period.
func (w *Watcher) flush(ctx context.Context) {
	now := w.now()
	for i, target := range w.targets {
		last, ok := w.pending[i]
		if !ok || now.Sub(last) < w.debounce {
			continue
		}
		delete(w.pending, i)

		log := w.log.WithField("task", target.Name)
		log.Info("Change detected, rebuilding")
		if err := w.runner.Run(ctx, target.Step); err != nil {
			log.WithError(err).Error("Rebuild failed")
		}
	}
}

// WatchTargets are the source trees watched by the watch task and the steps
// they trigger.
func (b *Builder) WatchTargets() []WatchTarget {
	icons := b.cfg.Icons
	return []WatchTarget{
		{Name: "fonts", Roots: []string{b.cfg.Fonts.Src}, Match: fontExts, Step: b.Fonts()},
		{Name: "images", Roots: []string{b.cfg.Images.Src}, Match: imageExts, Step: b.Images()},
		{
			Name:  "icons",
			Roots: []string{icons.Colorize.Src, icons.Normal.Src, icons.PNG.Src},
			Match: withExt(".svg", ".png"),
			Step:  b.Icons(),
		},
		{Name: "styles", Roots: []string{b.cfg.Stylesheets.Sass.Src}, Match: scssExts, Step: pipeline.Series(b.BuildScss(), b.LintCSS())},
		{Name: "scripts", Roots: []string{b.cfg.JS.Src}, Match: jsExts, Step: pipeline.Series(b.BuildES6(), b.BuildJS())},
	}
}

// Watch rebuilds on change until ctx is cancelled.
func (b *Builder) Watch(ctx context.Context, runner StepRunner) error {
	w, err := NewWatcher(b.WatchTargets(), runner, DefaultDebounce)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}
