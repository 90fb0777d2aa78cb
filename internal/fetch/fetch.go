package fetch

import (
	"context"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/schollz/progressbar/v3"
)

// Controls a single download.
type Options struct {
	URL        string        // Location of the file.
	Hash       digest.Digest // Expected digest of the downloaded bytes.
	Dest       string        // Output path; must not exist.
	Executable bool          // Mark the downloaded file executable.
	Unpack     bool          // Unpack the archive into Dest instead of storing it.
	Progress   io.Writer     // Progress bar destination, nil for none.
	Client     *http.Client  // HTTP client, [http.DefaultClient] when nil.
}

// Downloads, verifies and installs a file.
//
// The file is downloaded next to Dest and only moved into place (or
// unpacked) once its digest matches. A mismatch leaves Dest untouched and
// returns [ErrHashMismatch].
func Fetch(ctx context.Context, opts Options) error {
	if err := opts.Hash.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStep, err)
	}

	slog.Debug("fetching", "url", opts.URL, "dest", opts.Dest)

	dir := filepath.Dir(opts.Dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	tmp, err := os.CreateTemp(dir, ".fetch-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	defer os.Remove(tmp.Name())

	if err := download(ctx, opts, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	if opts.Unpack {
		if err := Unpack(tmp.Name(), opts.URL, opts.Dest); err != nil {
			os.RemoveAll(opts.Dest)
			return err
		}
		return nil
	}

	mode := os.FileMode(0o444)
	if opts.Executable {
		mode = 0o555
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	if err := os.Rename(tmp.Name(), opts.Dest); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	return nil
}

// Streams the response body into w while verifying its digest.
func download(ctx context.Context, opts Options, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrDownload, opts.URL, resp.Status)
	}

	verifier := opts.Hash.Verifier()
	dst := io.MultiWriter(w, verifier)
	if opts.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(filepath.Base(opts.Dest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		dst = io.MultiWriter(dst, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}
	if !verifier.Verified() {
		return fmt.Errorf("%w: %s: want %s", ErrHashMismatch, opts.URL, opts.Hash)
	}
	return nil
}
