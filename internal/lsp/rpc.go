// Package lsp implements the LSP client and bootstrap finite-state-machine:
// a Content-Length-framed JSON-RPC client over stdio, a servers.json config
// loader with mtime caching and fsnotify hot-reload, root resolution,
// diagnostics tracking, the bootstrap FSM transition table, and the runtime
// auto-provisioning template writer. No dependency here wraps JSON-RPC or
// LSP client framing, so the wire protocol is implemented directly on
// encoding/json + bufio: a line-oriented reader over the subprocess's
// stdout rather than a framing library.
package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// rpcMessage is the wire shape of a JSON-RPC 2.0 request, response, or
// notification. Exactly one of Method (request/notification) or Result/Error
// (response) is populated at a time by callers.
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcConn is a Content-Length-framed JSON-RPC connection over a stdio pipe
// pair, matching the framing every LSP server speaks.
type rpcConn struct {
	w       io.Writer
	r       *bufio.Reader
	writeMu sync.Mutex
	nextID  int64

	pendingMu sync.Mutex
	pending   map[int64]chan rpcMessage

	notifyMu sync.RWMutex
	notify   map[string]func(json.RawMessage)
}

func newRPCConn(w io.Writer, r io.Reader) *rpcConn {
	return &rpcConn{
		w:       w,
		r:       bufio.NewReader(r),
		pending: map[int64]chan rpcMessage{},
		notify:  map[string]func(json.RawMessage){},
	}
}

// OnNotification registers a handler for a server-to-client notification
// method (e.g. "textDocument/publishDiagnostics").
func (c *rpcConn) OnNotification(method string, handler func(json.RawMessage)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.notify[method] = handler
}

// Serve reads frames off r until it returns an error (typically EOF when the
// server process exits), dispatching responses to waiting callers and
// notifications to registered handlers.
func (c *rpcConn) Serve() error {
	for {
		raw, err := readFrame(c.r)
		if err != nil {
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.ID != nil && msg.Method == "" {
			c.pendingMu.Lock()
			ch, ok := c.pending[*msg.ID]
			if ok {
				delete(c.pending, *msg.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}
		if msg.Method != "" {
			c.notifyMu.RLock()
			handler, ok := c.notify[msg.Method]
			c.notifyMu.RUnlock()
			if ok {
				handler(msg.Params)
			}
		}
	}
}

// Call sends a request and blocks for its response.
func (c *rpcConn) Call(method string, params any) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	msg := rpcMessage{JSONRPC: "2.0", ID: &id, Method: method, Params: paramsRaw}

	ch := make(chan rpcMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	if err := c.write(msg); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, err
	}

	resp := <-ch
	if resp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// Notify sends a fire-and-forget notification (no response expected).
func (c *rpcConn) Notify(method string, params any) error {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	return c.write(rpcMessage{JSONRPC: "2.0", Method: method, Params: paramsRaw})
}

func (c *rpcConn) write(msg rpcMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal rpc message: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := c.w.Write([]byte(header)); err != nil {
		return err
	}
	_, err = c.w.Write(body)
	return err
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var contentLength int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "Content-Length:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:")))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length header: %w", err)
			}
			contentLength = n
		}
	}
	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	buf := make([]byte, contentLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
