package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
)

// Version of the envelope format.
const Version = 1

var (
	ErrProtocol = errors.New("protocol error")
	ErrRemote   = errors.New("daemon error")
)

// Names a request or response kind.
type Command string

const (
	CmdShow     Command = "show"     // Render a package's build step.
	CmdRealize  Command = "realize"  // Realize a package.
	CmdStatus   Command = "status"   // Report daemon status.
	CmdShutdown Command = "shutdown" // Stop the daemon.

	CmdOK    Command = "ok"    // Successful response.
	CmdError Command = "error" // Failed response.
)

// Wraps every message.
type Envelope struct {
	Version int             `json:"version"`
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Selects a package and the environment it is built against.
type PackageRequest struct {
	Attr     string `json:"attr"`               // Package attribute (e.g., "hello").
	Platform string `json:"platform,omitempty"` // Platform to bootstrap, the daemon's default when empty.
	Full     bool   `json:"full,omitempty"`     // Bootstrap through every stage.
}

// Payload of [CmdShow].
type ShowRequest struct {
	PackageRequest
}

// Result of [CmdShow].
type ShowResult struct {
	Step *drv.Rendered `json:"step"`
}

// Payload of [CmdRealize].
type RealizeRequest struct {
	PackageRequest
}

// Result of [CmdRealize].
type RealizeResult struct {
	Name    string               `json:"name"`
	Digest  string               `json:"digest"`
	Outputs []drv.RenderedOutput `json:"outputs"`
	Cached  bool                 `json:"cached"`
}

// Result of [CmdStatus].
type StatusResult struct {
	Running      bool     `json:"running" yaml:"running"`
	Version      string   `json:"version" yaml:"version"`
	Pid          int      `json:"pid" yaml:"pid"`
	Uptime       string   `json:"uptime" yaml:"uptime"`
	Realizations int      `json:"realizations" yaml:"realizations"`         // Realize requests served.
	Active       []string `json:"active,omitempty" yaml:"active,omitempty"` // Steps executing now.
	Derivations  int      `json:"derivations" yaml:"derivations"`           // Derivations in the store database.
	StorePaths   int      `json:"storePaths" yaml:"storePaths"`             // Realized outputs in the store database.
}

// Result of [CmdError].
type ErrorResult struct {
	Message string `json:"message"`
}

// Encodes a command and payload into an envelope. A nil payload is omitted.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Version: Version, Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return data, nil
}

// Decodes an envelope, returning it and its raw payload.
func Decode(data []byte) (*Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if env.Version != Version {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrProtocol, env.Version)
	}
	if env.Command == "" {
		return nil, nil, fmt.Errorf("%w: missing command", ErrProtocol)
	}
	return &env, env.Payload, nil
}

// Decodes a payload into T.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	var v T
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrProtocol)
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return &v, nil
}
