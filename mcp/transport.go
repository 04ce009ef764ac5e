package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/teamlenshq/teamlens/jsonrpc"
)

// Transport runs the stdio binding: newline-delimited JSON-RPC requests
// on in, responses on out.
type Transport struct {
	handler jsonrpc.Handler
	scanner *bufio.Scanner
	encoder *json.Encoder
	out     *bufio.Writer
	logger  *slog.Logger
}

// NewStdioTransport creates a transport reading requests from in and
// writing responses to out.
func NewStdioTransport(handler jsonrpc.Handler, in io.Reader, out io.Writer, logger *slog.Logger) *Transport {
	scanner := bufio.NewScanner(in)
	// Lines over a megabyte are rejected rather than buffered without bound.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	w := bufio.NewWriter(out)
	return &Transport{
		handler: handler,
		scanner: scanner,
		encoder: json.NewEncoder(w),
		out:     w,
		logger:  logger,
	}
}

// Run processes requests until in is exhausted or ctx is canceled.
// Requests are handled one at a time in arrival order.
func (t *Transport) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				return fmt.Errorf("reading request: %w", err)
			}
			return nil
		}

		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var request jsonrpc.Request
		if err := json.Unmarshal(line, &request); err != nil {
			t.write(jsonrpc.NewResponse(nil, nil, jsonrpc.NewError(jsonrpc.ErrParse, err.Error())))
			continue
		}

		response := t.handler.Handle(ctx, request)

		// Notifications get no reply.
		if request.IsNotification() {
			continue
		}
		t.write(response)
	}
}

func (t *Transport) write(response jsonrpc.Response) {
	if err := t.encoder.Encode(response); err != nil {
		t.logger.Error("encoding response", "error", err)
	}
	if err := t.out.Flush(); err != nil {
		t.logger.Error("flushing response", "error", err)
	}
}
