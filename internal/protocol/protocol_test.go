package protocol

import (
	"bufio"
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecode(t *testing.T) {
	req := &RealizeRequest{PackageRequest{Attr: "zlib", Platform: "x86_64-linux", Full: true}}

	data, err := Encode(CmdRealize, req)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	env, payload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Command != CmdRealize {
		t.Fatalf("Command = %q, want %q", env.Command, CmdRealize)
	}

	got, err := DecodePayload[RealizeRequest](payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if diff := cmp.Diff(req, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	data, err := Encode(CmdStatus, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := string(data), `{"version":1,"command":"status"}`; got != want {
		t.Fatalf("Encode = %s, want %s", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `hello`},
		{"wrong version", `{"version":2,"command":"status"}`},
		{"missing command", `{"version":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode([]byte(tt.data)); !errors.Is(err, ErrProtocol) {
				t.Fatalf("err = %v, want ErrProtocol", err)
			}
		})
	}
}

func TestDecodePayloadMissing(t *testing.T) {
	if _, err := DecodePayload[ShowRequest](nil); !errors.Is(err, ErrProtocol) {
		t.Fatalf("err = %v, want ErrProtocol", err)
	}
}

// Serves a single canned response on a temporary socket.
func serveOnce(t *testing.T, cmd Command, payload any) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "test.sock")
	l, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := bufio.NewReader(conn).ReadBytes('\n'); err != nil {
			return
		}
		data, _ := Encode(cmd, payload)
		conn.Write(append(data, '\n'))
	}()
	return socket
}

func TestCall(t *testing.T) {
	want := &ShowResult{Step: &drv.Rendered{Name: "hello-2.12.1", Builder: "/bin/sh"}}
	socket := serveOnce(t, CmdOK, want)

	env, payload, err := Call(context.Background(), socket, CmdShow, &ShowRequest{PackageRequest{Attr: "hello"}})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if env.Command != CmdOK {
		t.Fatalf("Command = %q, want %q", env.Command, CmdOK)
	}
	got, err := DecodePayload[ShowResult](payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got.Step.Name != want.Step.Name {
		t.Fatalf("Name = %q, want %q", got.Step.Name, want.Step.Name)
	}
}

func TestCallRemoteError(t *testing.T) {
	socket := serveOnce(t, CmdError, &ErrorResult{Message: "unknown attribute"})

	_, _, err := Call(context.Background(), socket, CmdRealize, &RealizeRequest{PackageRequest{Attr: "nope"}})
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("err = %v, want ErrRemote", err)
	}
}

func TestCallNoDaemon(t *testing.T) {
	_, _, err := Call(context.Background(), filepath.Join(t.TempDir(), "absent.sock"), CmdStatus, nil)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("err = %v, want ErrProtocol", err)
	}
}
