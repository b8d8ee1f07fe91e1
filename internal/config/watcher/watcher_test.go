package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// collect records events and signals the first one.
type collect struct {
	mu     sync.Mutex
	events []Event
	first  chan struct{}
	once   sync.Once
}

func newCollect() *collect {
	return &collect{first: make(chan struct{})}
}

func (c *collect) handle(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.once.Do(func() { close(c.first) })
}

func (c *collect) wait(t *testing.T) Event {
	t.Helper()
	select {
	case <-c.first:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for file event")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[0]
}

func TestNew(t *testing.T) {
	w := newWatcher(t)
	if w.debounce != DefaultDebounce {
		t.Errorf("default debounce = %v, want %v", w.debounce, DefaultDebounce)
	}

	w = newWatcher(t, WithDebounce(50*time.Millisecond))
	if w.debounce != 50*time.Millisecond {
		t.Errorf("debounce = %v, want 50ms", w.debounce)
	}
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_WatchUnwatch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.toml")
	b := filepath.Join(dir, "b.toml")

	w := newWatcher(t)
	for _, p := range []string{a, b, a} {
		if err := w.Watch(p); err != nil {
			t.Fatalf("Watch(%s) failed: %v", p, err)
		}
	}

	files := w.WatchedFiles()
	if len(files) != 2 || files[0] != a || files[1] != b {
		t.Errorf("WatchedFiles() = %v, want [%s %s]", files, a, b)
	}
	if w.dirs[dir] != 2 {
		t.Errorf("directory refcount = %d, want 2", w.dirs[dir])
	}

	if err := w.Unwatch(a); err != nil {
		t.Fatal(err)
	}
	if err := w.Unwatch(b); err != nil {
		t.Fatal(err)
	}
	if len(w.WatchedFiles()) != 0 || len(w.dirs) != 0 {
		t.Errorf("expected nothing watched, got %v %v", w.WatchedFiles(), w.dirs)
	}

	if err := w.Watch(filepath.Join(dir, "missing", "c.toml")); err == nil {
		t.Error("expected error watching a file in a missing directory")
	}
}

func TestWatcher_StartClose(t *testing.T) {
	w := newWatcher(t)

	if w.IsRunning() {
		t.Error("IsRunning() = true before Start()")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Errorf("second Start() = %v", err)
	}
	if !w.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if w.IsRunning() {
		t.Error("IsRunning() = true after Close()")
	}
	if err := w.Start(context.Background()); err != ErrClosed {
		t.Errorf("Start() after Close = %v, want ErrClosed", err)
	}
}

func TestWatcher_DetectsFileModification(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(tmpFile, []byte("initial"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, WithDebounce(0))
	c := newCollect()
	w.OnChange(c.handle)

	if err := w.Watch(tmpFile); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(tmpFile, []byte("modified"), 0644); err != nil {
		t.Fatal(err)
	}

	ev := c.wait(t)
	if ev.Op != OpWrite {
		t.Errorf("event.Op = %v, want write", ev.Op)
	}
	if ev.Path != tmpFile {
		t.Errorf("event.Path = %q, want %q", ev.Path, tmpFile)
	}
}

func TestWatcher_DetectsFileCreation(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "new.toml")

	w := newWatcher(t, WithDebounce(0))
	c := newCollect()
	w.OnChange(c.handle)

	if err := w.Watch(tmpFile); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "other.toml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tmpFile, []byte("created"), 0644); err != nil {
		t.Fatal(err)
	}

	ev := c.wait(t)
	if ev.Op != OpCreate || ev.Path != tmpFile {
		t.Errorf("event = %+v, want create of %s", ev, tmpFile)
	}
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "debounce.toml")
	if err := os.WriteFile(tmpFile, []byte("initial"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, WithDebounce(150*time.Millisecond))
	var count atomic.Int32
	w.OnChange(func(Event) { count.Add(1) })

	if err := w.Watch(tmpFile); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(tmpFile, []byte("modified"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("received %d events, want 1", got)
	}
}

func TestWatcher_Queue(t *testing.T) {
	w := newWatcher(t)
	base := time.Now()

	tests := []struct {
		name string
		ops  []Operation
		want Operation
	}{
		{"writes", []Operation{OpWrite, OpWrite}, OpWrite},
		{"create then write", []Operation{OpCreate, OpWrite}, OpCreate},
		{"write then remove", []Operation{OpWrite, OpRemove}, OpRemove},
		{"remove then create", []Operation{OpRemove, OpCreate}, OpCreate},
		{"rename then write", []Operation{OpRename, OpWrite}, OpRename},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			for i, op := range tt.ops {
				w.queue(Event{Path: tt.name, Op: op, Time: base.Add(time.Duration(i) * time.Millisecond)})
			}

			var got []Event
			w.OnChange(func(ev Event) {
				if ev.Path == tt.name {
					got = append(got, ev)
				}
			})
			w.flush(base.Add(time.Hour))

			if len(got) != 1 || got[0].Op != tt.want {
				t.Errorf("flushed %+v, want one %v", got, tt.want)
			}
		})
	}
}

func TestWatcher_FlushWaitsForQuiet(t *testing.T) {
	w := newWatcher(t, WithDebounce(time.Second))
	now := time.Now()
	w.queue(Event{Path: "p", Op: OpWrite, Time: now})

	var count int
	w.OnChange(func(Event) { count++ })

	w.flush(now.Add(500 * time.Millisecond))
	if count != 0 {
		t.Error("event flushed before the quiet period elapsed")
	}
	w.flush(now.Add(time.Second))
	if count != 1 {
		t.Errorf("count = %d after quiet period, want 1", count)
	}
}

func TestWatcher_HandlerPanicRecovered(t *testing.T) {
	w := newWatcher(t)
	var called bool
	w.OnChange(func(Event) { panic("boom") })
	w.OnChange(func(Event) { called = true })

	w.emit(Event{Path: "p"})
	if !called {
		t.Error("handler after a panicking one was not called")
	}
}
