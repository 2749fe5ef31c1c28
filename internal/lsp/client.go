// Package lsp implements the framed JSON-RPC adapter that drives one
// external language-analysis child process per configured server name.
// Content-Length framing is hand-rolled over bufio/encoding-json.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/wscode/internal/apierr"
	"github.com/ehrlich-b/wscode/internal/logger"
)

const (
	InitializeTimeout = 60 * time.Second
	RequestTimeout    = 30 * time.Second
)

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Client is a framed JSON-RPC client over one child process's stdio.
type Client struct {
	name string

	writeMu sync.Mutex
	w       io.Writer

	nextID  atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan rpcMessage

	capsMu       sync.Mutex
	capabilities json.RawMessage

	onNotification func(method string, params json.RawMessage)
}

// NewClient wraps a child process's stdin/stdout as a framed
// JSON-RPC peer and starts the single reader goroutine.
func NewClient(name string, stdin io.Writer, stdout io.Reader, onNotification func(string, json.RawMessage)) *Client {
	c := &Client{
		name:           name,
		w:              stdin,
		pending:        make(map[int64]chan rpcMessage),
		onNotification: onNotification,
	}
	go c.readLoop(bufio.NewReader(stdout))
	return c
}

func (c *Client) readLoop(r *bufio.Reader) {
	for {
		msg, err := readFramedMessage(r)
		if err != nil {
			c.failAllPending(err)
			return
		}
		if msg.ID != nil && (msg.Result != nil || msg.Error != nil) {
			c.deliver(*msg.ID, *msg)
			continue
		}
		if msg.Method != "" {
			if c.onNotification != nil {
				c.onNotification(msg.Method, msg.Params)
			}
		}
	}
}

func (c *Client) deliver(id int64, msg rpcMessage) {
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- msg
	}
}

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	logger.Warn("lsp: read loop terminated", "server", c.name, "err", err)
}

// SendRequest serializes method/params, registers a one-shot reply
// slot, and awaits the response with a fixed timeout. The slot is
// removed exactly once, whether by response, timeout, or channel
// closure — never leaked.
func (c *Client) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	ch := make(chan rpcMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	paramsRaw, err := json.Marshal(params)
	if err != nil {
		c.removePending(id)
		return nil, err
	}
	idCopy := id
	req := rpcMessage{JSONRPC: "2.0", ID: &idCopy, Method: method, Params: paramsRaw}
	if err := c.writeMessage(req); err != nil {
		c.removePending(id)
		return nil, err
	}

	timeout := RequestTimeout
	if method == "initialize" {
		timeout = InitializeTimeout
	}
	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, apierr.New(apierr.LspChannelClosed, method)
		}
		if msg.Error != nil {
			return nil, apierr.Newf(apierr.LspError, "%s", string(msg.Error))
		}
		return msg.Result, nil
	case <-time.After(timeout):
		c.removePending(id)
		return nil, apierr.New(apierr.LspTimeout, method)
	case <-ctx.Done():
		c.removePending(id)
		return nil, ctx.Err()
	}
}

func (c *Client) removePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// SendNotification is fire-and-forget.
func (c *Client) SendNotification(method string, params any) error {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return c.writeMessage(rpcMessage{JSONRPC: "2.0", Method: method, Params: paramsRaw})
}

func (c *Client) writeMessage(msg rpcMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
	if _, err := io.WriteString(c.w, header); err != nil {
		return err
	}
	_, err = c.w.Write(payload)
	return err
}

func (c *Client) SetCapabilities(raw json.RawMessage) {
	c.capsMu.Lock()
	c.capabilities = raw
	c.capsMu.Unlock()
}

func (c *Client) Capabilities() json.RawMessage {
	c.capsMu.Lock()
	defer c.capsMu.Unlock()
	return c.capabilities
}

// readFramedMessage consumes "Content-Length: N" header lines up to a
// blank line, then reads exactly N bytes and parses them as JSON.
func readFramedMessage(r *bufio.Reader) (*rpcMessage, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			n, err := strconv.Atoi(strings.TrimSpace(line[len("content-length:"):]))
			if err != nil {
				return nil, fmt.Errorf("lsp: bad content-length header %q: %w", line, err)
			}
			contentLength = n
		}
	}
	if contentLength < 0 {
		return nil, fmt.Errorf("lsp: missing content-length header")
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	var msg rpcMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
