package runtime

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"
)

// Creates a directory inside the sandbox, including parents.
func (s *Sandbox) MkdirAll(ctx context.Context, dir string) error {
	return s.mustExec(ctx, "mkdir", nil, nil, "mkdir", "-p", dir)
}

// Extracts a tar stream into destDir inside the sandbox.
func (s *Sandbox) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	return s.mustExec(ctx, "tar extract", r, nil, "tar", "xf", "-", "-C", destDir)
}

// Streams the file or directory at p inside the sandbox to w as a tar
// archive whose single top-level entry is the base name of p.
func (s *Sandbox) CopyFrom(ctx context.Context, w io.Writer, p string) error {
	return s.mustExec(ctx, "tar archive", nil, w, "tar", "cf", "-", "-C", path.Dir(p), path.Base(p))
}

// Runs a helper command, failing with desc and the captured stderr when it
// exits non-zero.
func (s *Sandbox) mustExec(ctx context.Context, desc string, stdin io.Reader, stdout io.Writer, args ...string) error {
	pspec, err := s.buildProcessSpec(ctx, nil, "", args...)
	if err != nil {
		return wrap(err)
	}

	var stderr stderrTail
	code, err := s.execProcess(ctx, pspec, stdin, stdout, &stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%w: %s failed with exit code %d (%s)", ErrRuntime, desc, code, stderr.String())
	}
	return nil
}

// Keeps the last bytes written to it.
type stderrTail struct {
	buf []byte
}

const stderrTailSize = 4096

func (t *stderrTail) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > stderrTailSize {
		t.buf = t.buf[len(t.buf)-stderrTailSize:]
	}
	return len(p), nil
}

func (t *stderrTail) String() string {
	return string(t.buf)
}

// Wraps r so that the returned channel is closed on its first EOF.
func notifyEOF(r io.Reader) (io.Reader, <-chan struct{}) {
	e := &eofReader{r: r, done: make(chan struct{})}
	return e, e.done
}

type eofReader struct {
	r    io.Reader
	once sync.Once
	done chan struct{}
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		e.once.Do(func() { close(e.done) })
	}
	return n, err
}
