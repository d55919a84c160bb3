package spawner

import (
	"io"
	"sync"
)

// TerminalChunk is one unit of pseudo-terminal output delivered to a
// subscriber, or an exit notification when ExitCode is non-nil.
type TerminalChunk struct {
	Bytes    []byte
	ExitCode *int
}

// Terminal is the pseudo-terminal stand-in the headless spawner optionally
// attaches to a worker process: it supports data-in (client keystrokes),
// data-out (process output, ring-buffered for late subscribers plus teed
// to a log file), resize bookkeeping, and exit notification. There is no
// real PTY device underneath — no example repo's go.mod pulls in a PTY
// allocation library — so this runs the child over ordinary OS pipes.
// Interactive programs that require a real terminal (raw mode, cursor
// queries) will not behave identically to a true PTY attach.
type Terminal struct {
	mu    sync.Mutex
	stdin io.WriteCloser
	ring  *RingBuffer
	subs  map[chan TerminalChunk]struct{}

	cols, rows int
	exited     bool
	exitCode   *int
}

// NewTerminal wraps stdin (the child process's standard input) with
// ring-buffered, fanned-out output tracking.
func NewTerminal(stdin io.WriteCloser) *Terminal {
	return &Terminal{
		stdin: stdin,
		ring:  NewRingBuffer(DefaultRingBufferSize),
		subs:  make(map[chan TerminalChunk]struct{}),
	}
}

// OutputWriter returns the io.Writer the spawned process's stdout/stderr
// should be wired to: every write lands in the ring buffer and is fanned
// out to current subscribers.
func (t *Terminal) OutputWriter() io.Writer {
	return terminalWriter{t}
}

type terminalWriter struct{ t *Terminal }

func (w terminalWriter) Write(p []byte) (int, error) {
	n, err := w.t.ring.Write(p)
	if err != nil {
		return n, err
	}

	chunk := make([]byte, len(p))
	copy(chunk, p)

	w.t.mu.Lock()
	for ch := range w.t.subs {
		select {
		case ch <- TerminalChunk{Bytes: chunk}:
		default:
			// Slow subscriber misses this chunk; Snapshot() on attach
			// still gives it the retained ring-buffer window.
		}
	}
	w.t.mu.Unlock()

	return n, nil
}

// WriteInput sends client keystrokes to the process's stdin.
func (t *Terminal) WriteInput(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// Resize records the client's reported terminal size. Since there is no
// real PTY, this is bookkeeping only — processes that query the terminal
// size via ioctl will not observe the change.
func (t *Terminal) Resize(cols, rows int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cols, t.rows = cols, rows
}

// Size returns the last size reported via Resize.
func (t *Terminal) Size() (cols, rows int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cols, t.rows
}

// Subscribe registers a channel for live output chunks and exit
// notification, buffered so a slow reader doesn't block the writer.
func (t *Terminal) Subscribe() <-chan TerminalChunk {
	ch := make(chan TerminalChunk, 64)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	exited, code := t.exited, t.exitCode
	t.mu.Unlock()

	if exited {
		ch <- TerminalChunk{ExitCode: code}
	}
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (t *Terminal) Unsubscribe(ch <-chan TerminalChunk) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for c := range t.subs {
		if c == ch {
			delete(t.subs, c)
			close(c)
			return
		}
	}
}

// Snapshot returns the retained ring-buffer output, for a subscriber that
// attaches after output has already started.
func (t *Terminal) Snapshot() []byte {
	return t.ring.Snapshot()
}

// NotifyExit records the exit code and fans an exit chunk out to every
// live subscriber.
func (t *Terminal) NotifyExit(exitCode int) {
	t.mu.Lock()
	t.exited = true
	t.exitCode = &exitCode
	subs := make([]chan TerminalChunk, 0, len(t.subs))
	for ch := range t.subs {
		subs = append(subs, ch)
	}
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- TerminalChunk{ExitCode: &exitCode}:
		default:
		}
	}
}
