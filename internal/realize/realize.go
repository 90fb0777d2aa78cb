package realize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	goruntime "runtime"
	"slices"
	"sort"
	"sync"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/fetch"
	"github.com/cruciblehq/cruxpkgs/internal/store"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Controls realization.
type Options struct {
	StoreDir string       // Store directory, [drv.DefaultStoreDir] when empty.
	Store    *store.Store // Realization records; nil trusts outputs found on disk.
	Executor Executor     // Runs non-builtin steps.
	Jobs     int          // Steps executed at once, the CPU count when zero.
	Progress io.Writer    // Download progress bars, nil for none.
	Client   *http.Client // HTTP client for builtin fetches.
}

// Outcome of realizing one derivation.
type Result struct {
	Name    string               // Display name.
	Digest  digest.Digest        // Derivation identity.
	Outputs []drv.RenderedOutput // Realized output paths.
	Cached  bool                 // Whether the outputs already existed.
}

// Realizes derivations into a store.
//
// A realizer is safe for concurrent use. Each description is realized at
// most once per realizer, however many callers ask for it.
type Realizer struct {
	opts     Options
	resolver drv.StoreResolver
	sem      *semaphore.Weighted
	group    singleflight.Group

	mu     sync.Mutex
	done   map[digest.Digest]*realized
	active map[digest.Digest]string
}

// A realized derivation and the store paths it needs at run time.
type realized struct {
	result  *Result
	closure []string
}

// Creates a realizer.
func New(opts Options) *Realizer {
	if opts.StoreDir == "" {
		opts.StoreDir = drv.DefaultStoreDir
	}
	if opts.Jobs <= 0 {
		opts.Jobs = goruntime.NumCPU()
	}
	return &Realizer{
		opts:     opts,
		resolver: drv.StoreResolver{Dir: opts.StoreDir},
		sem:      semaphore.NewWeighted(int64(opts.Jobs)),
		done:     make(map[digest.Digest]*realized),
		active:   make(map[digest.Digest]string),
	}
}

// Returns the resolver mapping outputs to paths in this realizer's store.
func (r *Realizer) Resolver() drv.Resolver {
	return r.resolver
}

// Returns the display names of the steps currently executing, sorted.
func (r *Realizer) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.active))
	for _, name := range r.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Realizes a derivation and everything it references.
//
// Contract violations raised while forcing lazy handles are returned as
// errors wrapping [drv.ErrContractViolation].
func (r *Realizer) Realize(ctx context.Context, h drv.Handle) (res *Result, err error) {
	defer drv.Recover(&err)

	rz, err := r.realize(ctx, h)
	if err != nil {
		return nil, err
	}
	return rz.result, nil
}

// Realizes a handle once, sharing the work with concurrent callers.
func (r *Realizer) realize(ctx context.Context, h drv.Handle) (*realized, error) {
	dg := h.Digest()

	r.mu.Lock()
	rz, ok := r.done[dg]
	r.mu.Unlock()
	if ok {
		return rz, nil
	}

	v, err, _ := r.group.Do(dg.String(), func() (any, error) {
		return r.build(ctx, h)
	})
	if err != nil {
		return nil, err
	}

	rz = v.(*realized)
	r.mu.Lock()
	r.done[dg] = rz
	r.mu.Unlock()
	return rz, nil
}

// Realizes the references of h, then h itself unless it is already valid.
func (r *Realizer) build(ctx context.Context, h drv.Handle) (_ *realized, err error) {
	defer drv.Recover(&err)

	d := h.Force()
	refs := drv.References(d)

	deps := make([]*realized, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			rz, err := r.realize(gctx, ref)
			if err != nil {
				return err
			}
			deps[i] = rz
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rendered := drv.Render(h, r.resolver)
	inputs := inputClosure(deps)
	rz := &realized{
		result: &Result{
			Name:    rendered.Name,
			Digest:  h.Digest(),
			Outputs: rendered.Outputs,
		},
		closure: closureWith(inputs, rendered.Outputs),
	}

	if r.valid(ctx, h, rendered) {
		slog.Debug("already realized", "name", rendered.Name)
		rz.result.Cached = true
		return rz, nil
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	r.track(h.Digest(), rendered.Name)
	defer r.untrack(h.Digest())

	slog.Info("realizing", "name", rendered.Name, "digest", h.Digest().Encoded()[:12])

	if err := r.run(ctx, d, rendered, inputs); err != nil {
		for _, o := range rendered.Outputs {
			os.RemoveAll(o.Path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrRealize, rendered.Name, err)
	}

	if err := r.record(ctx, h, rendered); err != nil {
		return nil, err
	}

	return rz, nil
}

// Executes one step and checks its outputs.
func (r *Realizer) run(ctx context.Context, d *drv.Derivation, rendered *drv.Rendered, inputs []string) error {
	for _, o := range rendered.Outputs {
		if err := os.RemoveAll(o.Path); err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
	}

	builtin := fetch.IsBuiltin(rendered)
	if builtin {
		opts, err := fetch.OptionsFrom(rendered)
		if err != nil {
			return err
		}
		opts.Progress = r.opts.Progress
		opts.Client = r.opts.Client
		if err := fetch.Fetch(ctx, opts); err != nil {
			return err
		}
	} else {
		if r.opts.Executor == nil {
			return ErrNoExecutor
		}
		step := &Step{Rendered: rendered, Inputs: inputs, StoreDir: r.opts.StoreDir}
		if err := r.opts.Executor.Execute(ctx, step); err != nil {
			return err
		}
	}

	for _, o := range rendered.Outputs {
		if _, err := os.Lstat(o.Path); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingOutput, o.Name)
		}
	}

	if d.IsFixedOutput() && !builtin {
		return verifyFixedOutput(rendered.Outputs[0].Path, d.FixedHash)
	}
	return nil
}

// Whether the outputs of a step already exist.
//
// With a store database an output only counts once its realization was
// recorded; a path without a record is a leftover of an interrupted build.
func (r *Realizer) valid(ctx context.Context, h drv.Handle, rendered *drv.Rendered) bool {
	for _, o := range rendered.Outputs {
		if _, err := os.Lstat(o.Path); err != nil {
			if r.opts.Store != nil {
				if err := r.opts.Store.Invalidate(ctx, h.Digest()); err != nil {
					slog.Warn("failed to invalidate realization", "name", rendered.Name, "error", err)
				}
			}
			return false
		}
	}

	if r.opts.Store == nil {
		return true
	}

	recorded, err := r.opts.Store.Realizations(ctx, h.Digest())
	if err != nil {
		slog.Warn("failed to read realizations", "name", rendered.Name, "error", err)
		return false
	}
	for _, o := range rendered.Outputs {
		if recorded[o.Name] != o.Path {
			return false
		}
	}
	return true
}

// Records a successful realization in the store database.
func (r *Realizer) record(ctx context.Context, h drv.Handle, rendered *drv.Rendered) error {
	if r.opts.Store == nil {
		return nil
	}
	if err := r.opts.Store.PutDerivation(ctx, h); err != nil {
		return err
	}
	for _, o := range rendered.Outputs {
		if err := r.opts.Store.AddRealization(ctx, h.Digest(), o.Name, o.Path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Realizer) track(dg digest.Digest, name string) {
	r.mu.Lock()
	r.active[dg] = name
	r.mu.Unlock()
}

func (r *Realizer) untrack(dg digest.Digest) {
	r.mu.Lock()
	delete(r.active, dg)
	r.mu.Unlock()
}

// Checks the content of a fixed-output file built by an executor.
//
// Directory outputs are not verified.
func verifyFixedOutput(p string, want digest.Digest) error {
	info, err := os.Lstat(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	if !info.Mode().IsRegular() {
		slog.Warn("fixed output is not a regular file, skipping verification", "path", p)
		return nil
	}

	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	defer f.Close()

	got, err := want.Algorithm().FromReader(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s: got %s, want %s", ErrHashMismatch, p, got, want)
	}
	return nil
}

// Returns the union of the closures of deps, sorted.
func inputClosure(deps []*realized) []string {
	var paths []string
	for _, d := range deps {
		paths = append(paths, d.closure...)
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

// Returns inputs extended with the given outputs, sorted.
func closureWith(inputs []string, outputs []drv.RenderedOutput) []string {
	paths := slices.Clone(inputs)
	for _, o := range outputs {
		paths = append(paths, o.Path)
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}
