package realize

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cruciblehq/cruxpkgs/internal/fetch"
	"github.com/cruciblehq/cruxpkgs/internal/runtime"
)

// A sandbox whose filesystem is a directory on the host.
type fakeSandbox struct {
	root string
	run  func(root string, p runtime.Process) (*runtime.ExecResult, error)

	mu        sync.Mutex
	copied    []string
	execs     []runtime.Process
	destroyed bool
	copyToErr error
}

func newFakeSandbox(root string) *fakeSandbox {
	return &fakeSandbox{root: root}
}

func (f *fakeSandbox) host(p string) string {
	return filepath.Join(f.root, filepath.FromSlash(p))
}

func (f *fakeSandbox) MkdirAll(_ context.Context, dir string) error {
	return os.MkdirAll(f.host(dir), 0o755)
}

func (f *fakeSandbox) CopyTo(_ context.Context, r io.Reader, destDir string) error {
	if f.copyToErr != nil {
		return f.copyToErr
	}
	f.mu.Lock()
	f.copied = append(f.copied, destDir)
	f.mu.Unlock()
	return fetch.Extract(r, f.host(destDir))
}

func (f *fakeSandbox) CopyFrom(_ context.Context, w io.Writer, p string) error {
	src := f.host(p)
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(w)
	if info.IsDir() {
		err = writeDirToTar(tw, src, path.Base(p))
	} else {
		err = writeTarEntry(tw, src, path.Base(p), info)
	}
	if err != nil {
		return err
	}
	return tw.Close()
}

func (f *fakeSandbox) Exec(_ context.Context, p runtime.Process) (*runtime.ExecResult, error) {
	f.mu.Lock()
	f.execs = append(f.execs, p)
	f.mu.Unlock()
	if f.run == nil {
		return &runtime.ExecResult{}, nil
	}
	return f.run(f.root, p)
}

func (f *fakeSandbox) Destroy(context.Context) {
	f.mu.Lock()
	f.destroyed = true
	f.mu.Unlock()
}

// Returns the value of key in a "key=value" list.
func lookupEnv(env []string, key string) (string, bool) {
	for _, e := range env {
		if k, v, ok := strings.Cut(e, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

var errFake = errors.New("fake failure")
