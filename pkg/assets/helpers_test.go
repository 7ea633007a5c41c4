package assets

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mattsolo1/grove-assets/pkg/config"
	"github.com/mattsolo1/grove-assets/pkg/exec"
	"github.com/stretchr/testify/require"
)

type execOpts = exec.StreamOptions

// invocation is one recorded tool run.
type invocation struct {
	name string
	args []string
	env  []string
}

func (i invocation) line() string {
	return strings.Join(append([]string{i.name}, i.args...), " ")
}

type toolRecorder struct {
	mu    sync.Mutex
	calls []invocation
}

func (r *toolRecorder) all() []invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]invocation(nil), r.calls...)
}

// byTool returns the recorded runs whose argv contains tool.
func (r *toolRecorder) byTool(tool string) []invocation {
	var out []invocation
	for _, c := range r.all() {
		for _, a := range append([]string{c.name}, c.args...) {
			if a == tool {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

type testEnv struct {
	root     string
	cfg      *config.Config
	executor *exec.MockCommandExecutor
	tools    *toolRecorder
	builder  *Builder
}

// newTestEnv points every source and destination into a temp dir and records
// every tool invocation.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	p := func(rel string) string { return filepath.Join(root, rel) }

	cfg := config.Default()
	cfg.Parallelism = 2
	cfg.Fonts = config.DirPair{Src: p("res/fonts"), Dest: p("fonts")}
	cfg.Images.Src = p("res/img")
	cfg.Images.Dest = p("img")
	cfg.Icons.Normal = config.DirPair{Src: p("res/icons/normal"), Dest: p("icons")}
	cfg.Icons.Colorize.Src = p("res/icons/colorize")
	cfg.Icons.Colorize.Dest = p("icons")
	cfg.Icons.Colorize.Colors = map[string]string{"primary": "#736b55", "white": "#fff"}
	cfg.Icons.PNG = config.DirPair{Src: p("res/icons/png"), Dest: p("icons/png")}
	cfg.Stylesheets.Sass.Src = p("res/scss")
	cfg.Stylesheets.CSS.Dest = p("css")
	cfg.JS = config.DirPair{Src: p("res/js"), Dest: p("js")}

	tools := &toolRecorder{}
	executor := &exec.MockCommandExecutor{
		StreamFunc: func(ctx context.Context, opts exec.StreamOptions, name string, arg ...string) error {
			tools.mu.Lock()
			tools.calls = append(tools.calls, invocation{name: name, args: arg, env: opts.Env})
			tools.mu.Unlock()
			return nil
		},
	}

	return &testEnv{
		root:     root,
		cfg:      cfg,
		executor: executor,
		tools:    tools,
		builder:  NewBuilder(cfg, executor, io.Discard, io.Discard).WithNodeModules(p("node_modules")),
	}
}

func (e *testEnv) path(rel string) string {
	return filepath.Join(e.root, rel)
}

func (e *testEnv) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := e.path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) exists(rel string) bool {
	_, err := os.Stat(e.path(rel))
	return err == nil
}
