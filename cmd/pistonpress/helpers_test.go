package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	pistonpress "github.com/alnah/go-pistonpress"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake press and environment
// ---------------------------------------------------------------------------

// fakePDF is what fakePress prints by default.
var fakePDF = []byte("%PDF-1.4 fake")

// fakePress records requests and returns canned results.
type fakePress struct {
	mu       sync.Mutex
	requests []pistonpress.Request
	pdf      []byte
	err      error
	closeErr error
	closed   int
	stats    pistonpress.QueueStats
}

func (p *fakePress) Print(_ context.Context, req pistonpress.Request) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if p.pdf == nil {
		return fakePDF, nil
	}
	return p.pdf, nil
}

func (p *fakePress) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return p.closeErr
}

func (p *fakePress) Stats() pistonpress.QueueStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *fakePress) lastRequest(t *testing.T) pistonpress.Request {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		t.Fatal("no request printed")
	}
	return p.requests[len(p.requests)-1]
}

func (p *fakePress) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// launchRecorder is a LaunchFunc returning a fixed press or error.
type launchRecorder struct {
	press *fakePress
	err   error

	mu    sync.Mutex
	dirs  pistonpress.Directories
	opts  int
	calls int
}

func (l *launchRecorder) launch(_ context.Context, dirs pistonpress.Directories, opts ...pistonpress.Option) (Press, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.dirs = dirs
	l.opts = len(opts)
	if l.err != nil {
		return nil, l.err
	}
	return l.press, nil
}

// newTestEnv returns an environment writing to buffers and launching a fake.
func newTestEnv(launch LaunchFunc) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &Environment{Stdout: stdout, Stderr: stderr, Launch: launch}, stdout, stderr
}

// newTemplateDirs creates templates and assets directories with one template per name.
func newTemplateDirs(t *testing.T, names ...string) (templates, assets string) {
	t.Helper()
	root := t.TempDir()
	templates = filepath.Join(root, "templates")
	assets = filepath.Join(root, "assets")
	for _, dir := range []string{templates, assets} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	for _, name := range names {
		path := filepath.Join(templates, name+".html")
		if err := os.WriteFile(path, []byte("<p>{{.name}}</p>"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	return templates, assets
}
