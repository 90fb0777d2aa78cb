package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/cruciblehq/cruxpkgs/internal"
	"github.com/cruciblehq/cruxpkgs/internal/realize"
	"github.com/cruciblehq/cruxpkgs/internal/runtime"
	"github.com/cruciblehq/cruxpkgs/internal/settings"
	"github.com/cruciblehq/cruxpkgs/internal/store"
)

var ErrNoSandboxImage = errors.New("no sandbox image configured")

// The realizer and the resources it holds.
type engine struct {
	realizer *realize.Realizer
	store    *store.Store
	runtime  *runtime.Runtime // Nil with the host executor.
}

// Opens the store and the configured executor.
//
// The engine must be closed when no longer needed.
func newEngine(ctx context.Context, s *settings.Settings, jobs int) (*engine, error) {
	db, err := store.Open(s.Database)
	if err != nil {
		return nil, err
	}

	e := &engine{store: db}

	var executor realize.Executor
	switch s.Executor {
	case settings.ExecutorHost:
		slog.Warn("running builders on the host without isolation")
		executor = &realize.HostExecutor{Log: buildLog()}

	case settings.ExecutorContainer:
		image := s.Containerd.SandboxImage
		if image == "" {
			e.close()
			return nil, fmt.Errorf("%w: set containerd.sandbox_image or use the host executor", ErrNoSandboxImage)
		}

		rt, err := runtime.New(runtime.Config{
			Address:     s.Containerd.Address,
			Namespace:   s.Containerd.Namespace,
			Snapshotter: s.Containerd.Snapshotter,
		})
		if err != nil {
			e.close()
			return nil, err
		}
		e.runtime = rt

		tag, err := rt.ImportImage(ctx, image)
		if err != nil {
			e.close()
			return nil, err
		}
		slog.Debug("sandbox image imported", "path", image, "tag", tag)

		executor = realize.NewContainerExecutor(rt, tag).WithLog(buildLog())
	}

	if jobs <= 0 {
		jobs = s.Jobs
	}

	e.realizer = realize.New(realize.Options{
		StoreDir: s.StoreDir,
		Store:    db,
		Executor: executor,
		Jobs:     jobs,
		Progress: progress(),
		Client:   &http.Client{Transport: userAgent{base: http.DefaultTransport}},
	})

	return e, nil
}

// Releases the store and runtime connections.
func (e *engine) close() {
	if e.runtime != nil {
		e.runtime.Close()
	}
	if e.store != nil {
		e.store.Close()
	}
}

// Returns where builder output is streamed, nil unless verbose.
func buildLog() io.Writer {
	if internal.IsVerbose() {
		return os.Stderr
	}
	return nil
}

// Returns where download progress is drawn, nil when stderr is not a
// terminal or output is quiet.
func progress() io.Writer {
	if internal.IsQuiet() || !isatty(os.Stderr) {
		return nil
	}
	return os.Stderr
}

// Sets the User-Agent header on every request.
type userAgent struct {
	base http.RoundTripper
}

func (t userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", internal.UserAgent())
	return t.base.RoundTrip(req)
}
