package realize

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/cruciblehq/cruxpkgs/internal/fetch"
)

// Copies a store path from the host into the sandbox at the same location.
func copyIn(ctx context.Context, sb Sandbox, hostPath string) error {
	info, err := os.Lstat(hostPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	slog.Debug("copy in", "path", hostPath, "dir", info.IsDir())

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		var writeErr error

		name := filepath.Base(hostPath)
		if info.IsDir() {
			writeErr = writeDirToTar(tw, hostPath, name)
		} else {
			writeErr = writeTarEntry(tw, hostPath, name, info)
		}

		if err := tw.Close(); writeErr == nil {
			writeErr = err
		}
		pw.CloseWithError(writeErr)
	}()

	if err := sb.CopyTo(ctx, pr, path.Dir(filepath.ToSlash(hostPath))); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("%w: %s: %w", ErrCopy, hostPath, err)
	}

	return nil
}

// Copies a path out of the sandbox into the same location on the host.
//
// The tar stream is piped from the sandbox straight into the extractor.
func copyOut(ctx context.Context, sb Sandbox, p string) error {
	slog.Debug("copy out", "path", p)

	pr, pw := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		err := sb.CopyFrom(ctx, pw, p)
		pw.CloseWithError(err)
		errc <- err
	}()

	extractErr := fetch.Extract(pr, filepath.Dir(p))
	if extractErr == nil {
		// Consume the archive trailer so the writer is not left blocked.
		_, extractErr = io.Copy(io.Discard, pr)
	}
	pr.CloseWithError(extractErr)

	if err := <-errc; err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCopy, p, err)
	}
	if extractErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrCopy, p, extractErr)
	}
	return nil
}

// Writes a directory tree to a tar writer rooted at the given archive prefix.
func writeDirToTar(tw *tar.Writer, hostDir, prefix string) error {
	return filepath.WalkDir(hostDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(hostDir, p)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		archivePath := filepath.ToSlash(filepath.Join(prefix, relPath))
		return writeTarEntry(tw, p, archivePath, info)
	})
}

// Writes a single file, directory or symlink entry to a tar writer.
//
// Symlinks are archived as links, never followed: store paths routinely
// contain links into other store paths.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, info os.FileInfo) error {
	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(hostPath)
		if err != nil {
			return err
		}
		link = target
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	header.Name = archivePath
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	}

	return nil
}
