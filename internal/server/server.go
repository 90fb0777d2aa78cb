package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cruciblehq/cruxpkgs/internal/paths"
	"github.com/cruciblehq/cruxpkgs/internal/platform"
	"github.com/cruciblehq/cruxpkgs/internal/protocol"
	"github.com/cruciblehq/cruxpkgs/internal/realize"
	"github.com/cruciblehq/cruxpkgs/internal/runtime"
	"github.com/cruciblehq/cruxpkgs/internal/store"
)

const (

	// Group name used to grant socket access. Members of this group can
	// connect to the daemon socket without owning the process.
	socketGroup = "cruxpkgs"

	// File mode applied to the Unix socket. Owner and group get read-write
	// (required for connect); others get no access.
	socketMode = 0660

	// Time allowed for removing stale sandboxes at start.
	pruneTimeout = 30 * time.Second
)

// Holds server configuration.
type Config struct {
	SocketPath string            // Unix socket path. Empty uses the default.
	PIDFile    string            // PID file path. Empty uses the default.
	Realizer   *realize.Realizer // Realizes requested packages. Required.
	Store      *store.Store      // Store database, reported by status. Optional.
	Runtime    *runtime.Runtime  // Sandbox runtime, pruned at start and closed at stop. Optional.
	Platform   platform.Platform // Platform requests bootstrap for by default, the host when zero.
	Full       bool              // Whether requests bootstrap through every stage by default.
}

// Listens on a Unix domain socket and dispatches commands.
type Server struct {
	cfg          Config
	listener     net.Listener  // Listener for incoming connections.
	startedAt    time.Time     // Timestamp when the server started.
	realizations int           // Total number of realize commands served.
	done         chan struct{} // Closed when the server stops.
	stopOnce     sync.Once
	mu           sync.Mutex // Protects realizations.
}

// Creates a new server instance.
//
// The socket is not opened until [Server.Start] is called.
func New(cfg Config) (*Server, error) {
	if cfg.Realizer == nil {
		return nil, fmt.Errorf("%w: no realizer", ErrServer)
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = paths.Socket()
	}
	if cfg.PIDFile == "" {
		cfg.PIDFile = paths.PIDFile()
	}

	return &Server{
		cfg:  cfg,
		done: make(chan struct{}),
	}, nil
}

// Opens the Unix socket and begins accepting connections.
//
// Sandboxes left behind by a previous daemon are destroyed first.
func (s *Server) Start() error {
	if s.cfg.Runtime != nil {
		ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		if _, err := s.cfg.Runtime.Prune(ctx); err != nil {
			slog.Warn("failed to prune sandboxes", "error", err)
		}
		cancel()
	}

	listener, err := listen(s.cfg.SocketPath)
	if err != nil {
		return err
	}

	s.listener = listener
	s.startedAt = time.Now()

	if err := writePID(s.cfg.PIDFile); err != nil {
		slog.Warn("failed to write PID file", "error", err)
	}

	slog.Info("server listening on socket", "path", s.cfg.SocketPath)

	go s.accept()
	return nil
}

// Creates the Unix socket listener, removes any stale socket from a previous
// run, and applies permissions.
func listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServer, err)
	}

	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %w", ErrServer, socketPath, err)
	}

	if err := setSocketPermissions(socketPath); err != nil {
		listener.Close()
		return nil, err
	}

	return listener, nil
}

// Restricts socket access to owner and group. The daemon does not run as
// root; any user in the cruxpkgs group can also connect.
func setSocketPermissions(socketPath string) error {
	if err := os.Chmod(socketPath, socketMode); err != nil {
		return fmt.Errorf("%w: failed to chmod socket %s: %w", ErrServer, socketPath, err)
	}

	if g, err := user.LookupGroup(socketGroup); err == nil {
		if gid, err := strconv.Atoi(g.Gid); err == nil {
			if err := os.Chown(socketPath, -1, gid); err != nil {
				slog.Warn("failed to chgrp socket", "group", socketGroup, "error", err)
			}
		}
	} else {
		slog.Debug("socket group not found, socket accessible to owner only", "group", socketGroup)
	}

	return nil
}

// Shuts down the server and releases its resources. Safe to call more than
// once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)

		if s.listener != nil {
			s.listener.Close()
		}
		if s.cfg.Runtime != nil {
			s.cfg.Runtime.Close()
		}

		os.Remove(s.cfg.SocketPath)
		os.Remove(s.cfg.PIDFile)
	})
	return nil
}

// Blocks until the server stops.
func (s *Server) Wait() {
	<-s.done
}

// Accepts connections in a loop until the server shuts down.
func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Error("accept error", "error", err)
				continue
			}
		}

		go s.handle(conn)
	}
}

// Processes a single connection.
//
// Reads one newline-delimited JSON message, dispatches the command, and
// writes the response. The connection is closed after one exchange.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	line, err := reader.ReadBytes('\n')
	if err != nil {
		slog.Error("read error", "error", err)
		return
	}

	env, payload, err := protocol.Decode(line)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	slog.Info("command received", "command", env.Command)

	ctx, cancel := contextWithDisconnect(context.Background(), reader)
	defer cancel()

	s.dispatch(ctx, conn, env.Command, payload)
}

// Routes a command to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, cmd protocol.Command, payload json.RawMessage) {
	switch cmd {
	case protocol.CmdShow:
		s.handleShow(conn, payload)
	case protocol.CmdRealize:
		s.handleRealize(ctx, conn, payload)
	case protocol.CmdStatus:
		s.handleStatus(ctx, conn)
	case protocol.CmdShutdown:
		s.handleShutdown(conn)
	default:
		s.respondError(conn, fmt.Errorf("unknown command: %s", cmd))
	}
}

// Writes a JSON envelope response to the connection.
func (s *Server) respond(conn net.Conn, cmd protocol.Command, payload any) {
	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		slog.Error("encode response failed", "error", err)
		return
	}
	conn.Write(append(data, '\n'))
}

// Writes an error response.
func (s *Server) respondError(conn net.Conn, err error) {
	s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
}

// Writes the daemon PID so the CLI can detect a running daemon.
func writePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), paths.DefaultFileMode)
}

// Returns a derived context that is cancelled when the remote end of the
// connection closes.
//
// Detection works by reading from r in a background goroutine. The read
// blocks until the peer closes the connection, at which point it returns
// and the derived context is cancelled. No further data may be expected on
// r for the lifetime of the returned context. The returned
// [context.CancelFunc] must always be called.
func contextWithDisconnect(parent context.Context, r io.Reader) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		buf := make([]byte, 1)
		r.Read(buf)
		cancel()
	}()

	return ctx, cancel
}
