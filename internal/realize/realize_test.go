package realize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/fetch"
	"github.com/cruciblehq/cruxpkgs/internal/store"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// Executor that creates every output directory, optionally running a hook.
type fakeExecutor struct {
	mu      sync.Mutex
	counts  map[string]int
	steps   []*Step
	running atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
	hook    func(step *Step) error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{counts: make(map[string]int)}
}

func (f *fakeExecutor) Execute(ctx context.Context, step *Step) error {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.counts[step.Rendered.Name]++
	f.steps = append(f.steps, step)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.hook != nil {
		return f.hook(step)
	}
	for _, o := range step.Rendered.Outputs {
		if err := os.MkdirAll(o.Path, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeExecutor) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

func step(name string, deps ...drv.Handle) drv.Handle {
	d := &drv.Derivation{Name: name, Builder: drv.Str("/bin/sh")}
	for i, dep := range deps {
		d.Env.Set(fmt.Sprintf("DEP%d", i), dep.Out())
	}
	return drv.New(d)
}

func TestRealizeDiamond(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := step("base")
	left := step("left", base)
	right := step("right", base)
	top := step("top", left, right)

	exec := newFakeExecutor()
	r := New(Options{StoreDir: t.TempDir(), Executor: exec, Jobs: 4})

	res, err := r.Realize(context.Background(), top)
	require.NoError(t, err)
	assert.Equal(t, "top", res.Name)
	assert.False(t, res.Cached)

	for _, name := range []string{"base", "left", "right", "top"} {
		assert.Equal(t, 1, exec.count(name), "step %s", name)
	}

	// The top step sees the whole input closure.
	var topStep *Step
	for _, s := range exec.steps {
		if s.Rendered.Name == "top" {
			topStep = s
		}
	}
	require.NotNil(t, topStep)
	resolver := r.Resolver()
	want := []string{
		resolver.Path(base, ""),
		resolver.Path(left, ""),
		resolver.Path(right, ""),
	}
	assert.ElementsMatch(t, want, topStep.Inputs)
	assert.IsIncreasing(t, topStep.Inputs)
}

func TestRealizeConcurrentCallers(t *testing.T) {
	defer goleak.VerifyNone(t)

	shared := step("shared")
	exec := newFakeExecutor()
	exec.delay = 20 * time.Millisecond
	r := New(Options{StoreDir: t.TempDir(), Executor: exec})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = r.Realize(context.Background(), step(fmt.Sprintf("user%d", i), shared))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, exec.count("shared"))
}

func TestRealizeJobsLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	var deps []drv.Handle
	for i := range 6 {
		deps = append(deps, step(fmt.Sprintf("leaf%d", i)))
	}
	exec := newFakeExecutor()
	exec.delay = 10 * time.Millisecond
	r := New(Options{StoreDir: t.TempDir(), Executor: exec, Jobs: 1})

	_, err := r.Realize(context.Background(), step("root", deps...))
	require.NoError(t, err)
	assert.Equal(t, int32(1), exec.peak.Load())
}

func TestRealizeSkipsRecordedOutputs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	h := step("lib")
	exec := newFakeExecutor()

	_, err = New(Options{StoreDir: dir, Store: db, Executor: exec}).Realize(ctx, h)
	require.NoError(t, err)

	res, err := New(Options{StoreDir: dir, Store: db, Executor: exec}).Realize(ctx, h)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, exec.count("lib"))

	recorded, err := db.Realizations(ctx, h.Digest())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"out": res.Outputs[0].Path}, recorded)

	// Removing the output on disk forces a rebuild.
	require.NoError(t, os.RemoveAll(res.Outputs[0].Path))
	res, err = New(Options{StoreDir: dir, Store: db, Executor: exec}).Realize(ctx, h)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, exec.count("lib"))
}

func TestRealizeUnrecordedOutputIsRebuilt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	h := step("partial")
	path := drv.StoreResolver{Dir: dir}.Path(h, "")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "stale"), nil, 0o644))

	exec := newFakeExecutor()
	_, err = New(Options{StoreDir: dir, Store: db, Executor: exec}).Realize(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 1, exec.count("partial"))
	assert.NoFileExists(t, filepath.Join(path, "stale"))
}

func TestRealizeFailureRemovesOutputs(t *testing.T) {
	exec := newFakeExecutor()
	exec.hook = func(s *Step) error {
		os.MkdirAll(s.Rendered.Outputs[0].Path, 0o755)
		return errFake
	}
	r := New(Options{StoreDir: t.TempDir(), Executor: exec})
	h := step("broken")

	_, err := r.Realize(context.Background(), h)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRealize)
	assert.ErrorIs(t, err, errFake)
	assert.NoDirExists(t, r.Resolver().Path(h, ""))
}

func TestRealizeFailureStopsDependents(t *testing.T) {
	exec := newFakeExecutor()
	exec.hook = func(s *Step) error {
		if s.Rendered.Name == "dep" {
			return errFake
		}
		return os.MkdirAll(s.Rendered.Outputs[0].Path, 0o755)
	}
	r := New(Options{StoreDir: t.TempDir(), Executor: exec})

	_, err := r.Realize(context.Background(), step("app", step("dep")))
	assert.ErrorIs(t, err, errFake)
	assert.Equal(t, 0, exec.count("app"))
}

func TestRealizeMissingOutput(t *testing.T) {
	exec := newFakeExecutor()
	exec.hook = func(*Step) error { return nil }
	r := New(Options{StoreDir: t.TempDir(), Executor: exec})

	_, err := r.Realize(context.Background(), step("lazy"))
	assert.ErrorIs(t, err, ErrMissingOutput)
}

func TestRealizeNoExecutor(t *testing.T) {
	r := New(Options{StoreDir: t.TempDir()})
	_, err := r.Realize(context.Background(), step("x"))
	assert.ErrorIs(t, err, ErrNoExecutor)
}

func TestRealizeContractViolation(t *testing.T) {
	h := drv.Lazy(func() *drv.Derivation {
		drv.Violation("recipe is broken")
		return nil
	})
	r := New(Options{StoreDir: t.TempDir(), Executor: newFakeExecutor()})

	_, err := r.Realize(context.Background(), step("app", h))
	assert.ErrorIs(t, err, drv.ErrContractViolation)
}

func TestRealizeFixedOutput(t *testing.T) {
	content := "pinned content"

	fixed := func(name string, hash digest.Digest) drv.Handle {
		return drv.New(&drv.Derivation{Name: name, Builder: drv.Str("/bin/sh"), FixedHash: hash})
	}
	writeContent := func(s *Step) error {
		return os.WriteFile(s.Rendered.Outputs[0].Path, []byte(content), 0o444)
	}

	exec := newFakeExecutor()
	exec.hook = writeContent
	r := New(Options{StoreDir: t.TempDir(), Executor: exec})

	_, err := r.Realize(context.Background(), fixed("good", digest.FromString(content)))
	require.NoError(t, err)

	_, err = r.Realize(context.Background(), fixed("bad", digest.FromString("other")))
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestRealizeBuiltinFetch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	payload := []byte("#!/bin/sh\necho hi\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	h := fetch.URL(fetch.URLOptions{
		URL:        srv.URL + "/hi.sh",
		Hash:       digest.FromBytes(payload).String(),
		Executable: true,
	})

	client := &http.Client{Transport: &http.Transport{}}
	defer client.CloseIdleConnections()

	// No executor: builtin fetches run on the host.
	r := New(Options{StoreDir: t.TempDir(), Client: client})
	res, err := r.Realize(context.Background(), h)
	require.NoError(t, err)

	data, err := os.ReadFile(res.Outputs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	info, err := os.Stat(res.Outputs[0].Path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100)
}

func TestRealizeHostExecutor(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	shell := func(name, script string, deps map[string]drv.Handle) drv.Handle {
		d := &drv.Derivation{
			Name:    name,
			Builder: drv.Str("/bin/sh"),
			Args:    []drv.Value{drv.Str("-e"), drv.Str("-c"), drv.Str(script)},
		}
		for k, dep := range deps {
			d.Env.Set(k, dep.Out())
		}
		return drv.New(d)
	}

	lib := shell("greeting", `mkdir -p "$out" && printf hello > "$out/msg"`, nil)
	app := shell("app", `mkdir -p "$out" && cat "$GREETING/msg" > "$out/result" && printf " $HOME" >> "$out/result"`,
		map[string]drv.Handle{"GREETING": lib})

	r := New(Options{StoreDir: t.TempDir(), Executor: &HostExecutor{}})
	res, err := r.Realize(context.Background(), app)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(res.Outputs[0].Path, "result"))
	require.NoError(t, err)
	assert.Equal(t, "hello /homeless-shelter", string(data))
}

func TestHostExecutorFailure(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	h := drv.New(&drv.Derivation{
		Name:    "fails",
		Builder: drv.Str("/bin/sh"),
		Args:    []drv.Value{drv.Str("-c"), drv.Str("echo boom >&2; exit 3")},
	})
	r := New(Options{StoreDir: t.TempDir(), Executor: &HostExecutor{}})

	_, err := r.Realize(context.Background(), h)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "exited with code 3")
	assert.Contains(t, err.Error(), "boom")
}

func TestActive(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	exec := newFakeExecutor()
	exec.hook = func(s *Step) error {
		close(started)
		<-release
		return os.MkdirAll(s.Rendered.Outputs[0].Path, 0o755)
	}
	r := New(Options{StoreDir: t.TempDir(), Executor: exec})

	done := make(chan error, 1)
	go func() {
		_, err := r.Realize(context.Background(), step("slow"))
		done <- err
	}()

	<-started
	assert.Equal(t, []string{"slow"}, r.Active())
	close(release)
	require.NoError(t, <-done)
	assert.Empty(t, r.Active())
}

func TestRealizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := newFakeExecutor()
	r := New(Options{StoreDir: t.TempDir(), Executor: exec, Jobs: 1})
	_, err := r.Realize(ctx, step("x"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, exec.count("x"))
}
