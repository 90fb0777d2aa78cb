package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/cruciblehq/cruxpkgs/internal"
	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/cruciblehq/cruxpkgs/internal/eval"
	"github.com/cruciblehq/cruxpkgs/internal/protocol"
)

// Converts a package request into an evaluation request, applying the
// server defaults.
func (s *Server) evalRequest(req protocol.PackageRequest) (eval.Request, error) {
	p := s.cfg.Platform
	if req.Platform != "" {
		parsed, err := eval.ParsePlatform(req.Platform)
		if err != nil {
			return eval.Request{}, err
		}
		p = parsed
	}
	return eval.Request{Attr: req.Attr, Platform: p, Full: req.Full || s.cfg.Full}, nil
}

// Handles a show command.
//
// Evaluates the package and returns its build step as the executor would
// see it.
func (s *Server) handleShow(conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.ShowRequest](payload)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	ereq, err := s.evalRequest(req.PackageRequest)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	h, err := eval.Package(ereq)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	s.respond(conn, protocol.CmdOK, &protocol.ShowResult{
		Step: drv.Render(h, s.cfg.Realizer.Resolver()),
	})
}

// Handles a realize command.
//
// The request is canceled when the client disconnects; steps already
// shared with other clients keep running for them.
func (s *Server) handleRealize(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.RealizeRequest](payload)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	ereq, err := s.evalRequest(req.PackageRequest)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	h, err := eval.Package(ereq)
	if err != nil {
		s.respondError(conn, err)
		return
	}

	res, err := s.cfg.Realizer.Realize(ctx, h)
	if err != nil {
		slog.Error("realize failed", "attr", req.Attr, "error", err)
		s.respondError(conn, err)
		return
	}

	s.mu.Lock()
	s.realizations++
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, &protocol.RealizeResult{
		Name:    res.Name,
		Digest:  res.Digest.String(),
		Outputs: res.Outputs,
		Cached:  res.Cached,
	})
}

// Handles a status command.
func (s *Server) handleStatus(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	realizations := s.realizations
	s.mu.Unlock()

	result := &protocol.StatusResult{
		Running:      true,
		Version:      internal.VersionString(),
		Pid:          os.Getpid(),
		Uptime:       time.Since(s.startedAt).Truncate(time.Second).String(),
		Realizations: realizations,
		Active:       s.cfg.Realizer.Active(),
	}

	if s.cfg.Store != nil {
		stats, err := s.cfg.Store.Stats(ctx)
		if err != nil {
			slog.Warn("failed to read store stats", "error", err)
		} else {
			result.Derivations = stats.Derivations
			result.StorePaths = stats.Realizations
		}
	}

	s.respond(conn, protocol.CmdOK, result)
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go s.Stop()
}
