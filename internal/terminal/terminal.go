// Package terminal implements the PTY broker: allocation, resize, the
// blocking read pump, and write serialization, using creack/pty with
// a cmd.Cancel/WaitDelay graceful termination hook.
package terminal

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/ehrlich-b/wscode/internal/apierr"
	"github.com/ehrlich-b/wscode/internal/bus"
)

// EventKind tags a terminal bus event.
type EventKind string

const (
	EventOutput EventKind = "Output"
	EventError  EventKind = "Error"
)

type Event struct {
	Kind  EventKind
	ID    string
	Data  []byte
	Error string
}

const readChunk = 1024

type handle struct {
	id   string
	ptmx *os.File
	cmd  *exec.Cmd

	writeMu sync.Mutex
}

// Broker owns all live terminals for the process.
type Broker struct {
	events *bus.Bus[Event]

	mu        sync.Mutex
	terminals map[string]*handle
}

func NewBroker() *Broker {
	return &Broker{
		events:    bus.New[Event](bus.DefaultCapacity),
		terminals: make(map[string]*handle),
	}
}

func (b *Broker) Subscribe() *bus.Subscription[Event]   { return b.events.Subscribe() }
func (b *Broker) Unsubscribe(s *bus.Subscription[Event]) { b.events.Unsubscribe(s) }

// Create allocates a PTY pair of the given size, spawns the user's
// shell, and starts the blocking reader pump.
func (b *Broker) Create(cols, rows uint16, cwd string) (string, error) {
	shellPath, args := resolveShell()

	cmd := exec.CommandContext(context.Background(), shellPath, args...)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	if runtime.GOOS != "windows" {
		cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
		cmd.WaitDelay = 5 * time.Second
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return "", apierr.New(apierr.PtyAllocationFailed, err.Error())
	}

	id := uuid.NewString()
	h := &handle{id: id, ptmx: ptmx, cmd: cmd}

	b.mu.Lock()
	b.terminals[id] = h
	b.mu.Unlock()

	go b.readPump(h)
	return id, nil
}

func (b *Broker) readPump(h *handle) {
	buf := make([]byte, readChunk)
	for {
		n, err := h.ptmx.Read(buf)
		if n > 0 {
			out := make([]byte, n)
			copy(out, buf[:n])
			b.events.Publish(Event{Kind: EventOutput, ID: h.id, Data: out})
		}
		if err != nil {
			b.events.Publish(Event{Kind: EventError, ID: h.id, Error: err.Error()})
			return
		}
	}
}

// Write serializes a write through the terminal's exclusive writer.
func (b *Broker) Write(id string, data []byte) error {
	h, ok := b.get(id)
	if !ok {
		return apierr.New(apierr.TerminalNotFound, id)
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_, err := h.ptmx.Write(data)
	if err != nil {
		return apierr.New(apierr.WriterUnavailable, err.Error())
	}
	return nil
}

// Resize adjusts the PTY's window size.
func (b *Broker) Resize(id string, cols, rows uint16) error {
	h, ok := b.get(id)
	if !ok {
		return apierr.New(apierr.TerminalNotFound, id)
	}
	return pty.Setsize(h.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

// Close removes the terminal from the registry. Native cleanup
// follows from closing the PTY master and signaling the shell.
func (b *Broker) Close(id string) error {
	h, ok := b.get(id)
	if !ok {
		return apierr.New(apierr.TerminalNotFound, id)
	}
	b.mu.Lock()
	delete(b.terminals, id)
	b.mu.Unlock()

	_ = h.ptmx.Close()
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	}
	return nil
}

func (b *Broker) get(id string) (*handle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.terminals[id]
	return h, ok
}

func resolveShell() (string, []string) {
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec, nil
		}
		return "cmd.exe", nil
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, nil
	}
	return "/bin/bash", nil
}
