package fetch

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/opencontainers/go-digest"
)

// Serves body at every path.
func serve(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Builds an uncompressed tar with the given files.
func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetchFile(t *testing.T) {
	body := []byte("#!/bin/sh\necho hi\n")
	srv := serve(t, body)
	dest := filepath.Join(t.TempDir(), "out")

	err := Fetch(context.Background(), Options{
		URL:        srv.URL + "/tool",
		Hash:       digest.FromBytes(body),
		Dest:       dest,
		Executable: true,
	})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("content = %q, want %q", got, body)
	}
	info, _ := os.Stat(dest)
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("mode = %v, want executable", info.Mode())
	}
}

func TestFetchHashMismatch(t *testing.T) {
	srv := serve(t, []byte("tampered"))
	dest := filepath.Join(t.TempDir(), "out")

	err := Fetch(context.Background(), Options{
		URL:  srv.URL + "/file",
		Hash: digest.FromString("original"),
		Dest: dest,
	})
	if !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("err = %v, want ErrHashMismatch", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("destination created despite the mismatch")
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := serve(t, nil)
	err := Fetch(context.Background(), Options{
		URL:  srv.URL + "/missing",
		Hash: digest.FromString(""),
		Dest: filepath.Join(t.TempDir(), "out"),
	})
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("err = %v, want ErrDownload", err)
	}
}

func TestFetchUnpack(t *testing.T) {
	raw := tarball(t, map[string]string{"src/configure": "#!/bin/sh\n"})

	var gz bytes.Buffer
	w := pgzip.NewWriter(&gz)
	w.Write(raw)
	w.Close()

	var zst bytes.Buffer
	zw, err := zstd.NewWriter(&zst)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write(raw)
	zw.Close()

	tests := []struct {
		name string
		body []byte
	}{
		{"src.tar", raw},
		{"src.tar.gz", gz.Bytes()},
		{"src.tar.zst", zst.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.body)
			dest := filepath.Join(t.TempDir(), "out")

			err := Fetch(context.Background(), Options{
				URL:    srv.URL + "/" + tt.name,
				Hash:   digest.FromBytes(tt.body),
				Dest:   dest,
				Unpack: true,
			})
			if err != nil {
				t.Fatalf("Fetch() error: %v", err)
			}
			if _, err := os.Stat(filepath.Join(dest, "src", "configure")); err != nil {
				t.Fatalf("unpacked file missing: %v", err)
			}
		})
	}
}

func TestUnpackRejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tar")
	if err := os.WriteFile(archive, tarball(t, map[string]string{"../evil": "x"}), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Unpack(archive, archive, filepath.Join(dir, "out"))
	if !errors.Is(err, ErrUnpack) {
		t.Fatalf("err = %v, want ErrUnpack", err)
	}
}

func TestUnpackUnsupported(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "src.rar")
	os.WriteFile(archive, []byte("x"), 0o644)

	if err := Unpack(archive, archive, filepath.Join(dir, "out")); !errors.Is(err, ErrUnsupportedArchive) {
		t.Fatalf("err = %v, want ErrUnsupportedArchive", err)
	}
}

func TestURLStep(t *testing.T) {
	h := URL(URLOptions{
		URL:    "https://example.org/hello-2.12.1.tar.gz",
		Hash:   digest.FromString("hello").String(),
		Unpack: true,
	})

	d := h.Force()
	if d.Name != "hello-2.12.1.tar.gz" {
		t.Fatalf("Name = %q", d.Name)
	}
	if !d.IsFixedOutput() {
		t.Fatal("fetch step is not fixed-output")
	}
	if refs := drv.References(d); len(refs) != 0 {
		t.Fatalf("fetch step has %d references, want none", len(refs))
	}

	r := drv.Render(h, drv.StoreResolver{Dir: "/store"})
	opts, err := OptionsFrom(r)
	if err != nil {
		t.Fatalf("OptionsFrom() error: %v", err)
	}
	if opts.URL != "https://example.org/hello-2.12.1.tar.gz" || !opts.Unpack || opts.Executable {
		t.Fatalf("options = %+v", opts)
	}
	if opts.Dest != r.Outputs[0].Path {
		t.Fatalf("Dest = %q, want %q", opts.Dest, r.Outputs[0].Path)
	}
}

func TestURLStepValidation(t *testing.T) {
	tests := []struct {
		name string
		opts URLOptions
	}{
		{"no url", URLOptions{Hash: digest.FromString("").String()}},
		{"bad hash", URLOptions{URL: "https://example.org/x", Hash: "md5:abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				err, _ := recover().(error)
				if !errors.Is(err, drv.ErrContractViolation) {
					t.Fatalf("recovered %v, want a contract violation", err)
				}
			}()
			URL(tt.opts)
		})
	}
}
