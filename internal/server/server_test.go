package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cruciblehq/cruxpkgs/internal/platform"
	"github.com/cruciblehq/cruxpkgs/internal/protocol"
	"github.com/cruciblehq/cruxpkgs/internal/realize"
	"github.com/cruciblehq/cruxpkgs/internal/store"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()

	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	socket := filepath.Join(dir, "s.sock")
	srv, err := New(Config{
		SocketPath: socket,
		PIDFile:    filepath.Join(dir, "s.pid"),
		Realizer:   realize.New(realize.Options{StoreDir: filepath.Join(dir, "store")}),
		Store:      db,
		Platform:   platform.MustParse("x86_64-linux"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv, socket
}

func TestNewRequiresRealizer(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrServer) {
		t.Fatalf("err = %v, want ErrServer", err)
	}
}

func TestStartWritesPIDAndSocket(t *testing.T) {
	srv, socket := startServer(t)

	info, err := os.Stat(socket)
	if err != nil {
		t.Fatalf("socket missing: %v", err)
	}
	if info.Mode().Perm() != socketMode {
		t.Fatalf("socket mode = %v, want %v", info.Mode().Perm(), os.FileMode(socketMode))
	}

	data, err := os.ReadFile(srv.cfg.PIDFile)
	if err != nil {
		t.Fatalf("pid file missing: %v", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		t.Fatal("pid file is empty")
	}
}

func TestStatus(t *testing.T) {
	_, socket := startServer(t)

	_, payload, err := protocol.Call(context.Background(), socket, protocol.CmdStatus, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	res, err := protocol.DecodePayload[protocol.StatusResult](payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if !res.Running {
		t.Fatal("Running = false, want true")
	}
	if res.Pid != os.Getpid() {
		t.Fatalf("Pid = %d, want %d", res.Pid, os.Getpid())
	}
	if res.Realizations != 0 || res.Derivations != 0 {
		t.Fatalf("counters = %d/%d, want 0/0", res.Realizations, res.Derivations)
	}
}

func TestShow(t *testing.T) {
	_, socket := startServer(t)

	req := &protocol.ShowRequest{PackageRequest: protocol.PackageRequest{Attr: "zlib"}}
	_, payload, err := protocol.Call(context.Background(), socket, protocol.CmdShow, req)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	res, err := protocol.DecodePayload[protocol.ShowResult](payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if res.Step.Name != "zlib-1.3.1" {
		t.Fatalf("Name = %q, want %q", res.Step.Name, "zlib-1.3.1")
	}
	if v, ok := res.Step.Lookup("CONFIGURE_FLAGS"); !ok || v != "--static--shared" {
		t.Fatalf("CONFIGURE_FLAGS = %q, %v; want %q", v, ok, "--static--shared")
	}
	if len(res.Step.Outputs) == 0 || !strings.HasSuffix(res.Step.Outputs[0].Path, "-zlib-1.3.1") {
		t.Fatalf("Outputs = %+v, want a zlib-1.3.1 store path", res.Step.Outputs)
	}
}

func TestShowErrors(t *testing.T) {
	_, socket := startServer(t)

	tests := []struct {
		name string
		req  protocol.PackageRequest
		want string
	}{
		{"unknown attribute", protocol.PackageRequest{Attr: "emacs"}, "unknown attribute"},
		{"bad platform", protocol.PackageRequest{Attr: "zlib", Platform: "x"}, "invalid platform"},
		{"unsupported platform", protocol.PackageRequest{Attr: "zlib", Platform: "powerpc64-linux"}, "not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := protocol.Call(context.Background(), socket, protocol.CmdShow, &protocol.ShowRequest{PackageRequest: tt.req})
			if !errors.Is(err, protocol.ErrRemote) {
				t.Fatalf("err = %v, want ErrRemote", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestRealizeUnknownAttr(t *testing.T) {
	_, socket := startServer(t)

	req := &protocol.RealizeRequest{PackageRequest: protocol.PackageRequest{Attr: "emacs"}}
	_, _, err := protocol.Call(context.Background(), socket, protocol.CmdRealize, req)
	if !errors.Is(err, protocol.ErrRemote) {
		t.Fatalf("err = %v, want ErrRemote", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, socket := startServer(t)

	_, _, err := protocol.Call(context.Background(), socket, protocol.Command("explode"), nil)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v, want unknown command", err)
	}
}

func TestMalformedRequest(t *testing.T) {
	_, socket := startServer(t)

	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	env, _, err := protocol.Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Command != protocol.CmdError {
		t.Fatalf("Command = %q, want %q", env.Command, protocol.CmdError)
	}
}

func TestShutdown(t *testing.T) {
	srv, socket := startServer(t)

	if _, _, err := protocol.Call(context.Background(), socket, protocol.CmdShutdown, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		srv.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}

	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("socket still present after shutdown: %v", err)
	}
}
