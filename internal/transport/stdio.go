package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mcpenterprise/server/internal/auth"
)

// Stdio implements §4.I's stdio transport: line-delimited JSON on
// stdin/stdout, one request per line, responses emitted in the order
// requests were received. EOF on stdin ends Serve, which the caller
// treats as a graceful-shutdown signal.
//
// Grounded on the teacher's bufio.Reader-based bridge.ReadStdioMessage,
// trimmed to the spec's line-only framing (no Content-Length headers).
type Stdio struct {
	router Router
	in     io.Reader
	out    io.Writer
	log    *slog.Logger

	defaultDeadline time.Duration
}

// NewStdio builds a stdio transport reading from in and writing
// responses to out, routing calls through router.
func NewStdio(router Router, in io.Reader, out io.Writer, log *slog.Logger) *Stdio {
	if log == nil {
		log = slog.Default()
	}
	return &Stdio{
		router:          router,
		in:              in,
		out:             out,
		log:             log,
		defaultDeadline: 30 * time.Second,
	}
}

// Serve reads requests one line at a time until ctx is cancelled or
// stdin reaches EOF, writing one response line per request. It never
// returns an error for a clean EOF.
func (s *Stdio) Serve(ctx context.Context) error {
	reader := bufio.NewReader(s.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			s.handleLine(ctx, trimmed)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (s *Stdio) handleLine(ctx context.Context, line string) {
	var req Request
	if jsonErr := json.Unmarshal([]byte(line), &req); jsonErr != nil {
		s.writeResponse(Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: CodeParseError, Message: "parse error: " + jsonErr.Error()},
		})
		return
	}

	callCtx := auth.WithPrincipal(ctx, auth.StdioPrincipal)
	resp := Response{JSONRPC: "2.0", ID: req.ID}
	result, callErr := routeRequest(callCtx, s.router, req, auth.StdioPrincipal, s.defaultDeadline, "stdio")
	if callErr != nil {
		resp.Error = ErrFromRPCError(callErr)
	} else {
		resp.Result = result
	}
	s.writeResponse(resp)
}

func (s *Stdio) writeResponse(resp Response) {
	encoded, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("stdio: failed to encode response", "error", err)
		return
	}
	if _, err := s.out.Write(append(encoded, '\n')); err != nil {
		s.log.Error("stdio: failed to write response", "error", err)
	}
}
