package fetch

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Extracts a tar archive into dest.
//
// The compression is chosen from the suffix of name (usually the URL the
// archive came from). Entries that would escape dest are rejected.
func Unpack(archive, name, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	defer f.Close()

	r, closer, err := decompressor(f, name)
	if err != nil {
		return err
	}
	defer closer()

	return Extract(r, dest)
}

// Extracts an uncompressed tar stream into dest.
func Extract(r io.Reader, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnpack, err)
		}
		if err := extractEntry(tr, hdr, dest); err != nil {
			return err
		}
	}
}

// Returns a reader decompressing r according to the suffix of name.
func decompressor(r io.Reader, name string) (io.Reader, func(), error) {
	noop := func() {}
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrUnpack, err)
		}
		return gz, func() { gz.Close() }, nil
	case strings.HasSuffix(name, ".tar.xz"):
		x, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrUnpack, err)
		}
		return x, noop, nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrUnpack, err)
		}
		return zr, zr.Close, nil
	case strings.HasSuffix(name, ".tar"):
		return r, noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, name)
	}
}

// Writes a single tar entry below dest.
func extractEntry(tr *tar.Reader, hdr *tar.Header, dest string) error {
	target := filepath.Join(dest, hdr.Name)
	if target != dest && !strings.HasPrefix(target, dest+string(filepath.Separator)) {
		return fmt.Errorf("%w: entry %q escapes the output", ErrUnpack, hdr.Name)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, os.FileMode(hdr.Mode)&os.ModePerm|0o700); err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
	case tar.TypeReg:
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&os.ModePerm)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("%w: %w", ErrUnpack, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
	case tar.TypeSymlink:
		if err := os.Symlink(hdr.Linkname, target); err != nil && !os.IsExist(err) {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
	case tar.TypeLink:
		src := filepath.Join(dest, hdr.Linkname)
		if !strings.HasPrefix(src, dest+string(filepath.Separator)) {
			return fmt.Errorf("%w: link %q escapes the output", ErrUnpack, hdr.Linkname)
		}
		if err := os.Link(src, target); err != nil {
			return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
	case tar.TypeXHeader, tar.TypeXGlobalHeader:
	default:
		// Devices and fifos have no place in a store path.
	}
	return nil
}
