package toolproc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// errChannelClosed is returned by calls made after the channel stopped.
var errChannelClosed = fmt.Errorf("%w: channel closed", domain.ErrProcessLifecycle)

type result struct {
	raw json.RawMessage
	err error
}

type outgoing struct {
	id   uint64
	line []byte
}

// Channel multiplexes calls over one request stream and one response stream.
//
// A call is completed exactly once, by whichever of its response, its
// timeout, its context or channel shutdown first removes it from pending.
type Channel struct {
	name    string
	timeout time.Duration
	log     *slog.Logger

	nextID   atomic.Uint64
	requests chan outgoing

	mu       sync.Mutex
	pending  map[uint64]chan result
	closed   bool
	closeErr error
	done     chan struct{}
}

// NewChannel starts the reader and writer goroutines. The channel closes
// itself when r reaches EOF.
func NewChannel(name string, r io.Reader, w io.Writer, timeout time.Duration, log *slog.Logger) *Channel {
	if timeout <= 0 {
		timeout = domain.DefaultCallTimeout
	}
	c := &Channel{
		name:     name,
		timeout:  timeout,
		log:      log,
		requests: make(chan outgoing),
		pending:  make(map[uint64]chan result),
		done:     make(chan struct{}),
	}
	go c.readLoop(r)
	go c.writeLoop(w)
	return c
}

// Call sends a request and waits for its response.
func (c *Channel) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := Request{Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}

	req.ID = c.nextID.Add(1)
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	line = append(line, '\n')

	ch := make(chan result, 1)
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return nil, err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case c.requests <- outgoing{id: req.ID, line: line}:
	case res := <-ch:
		return res.raw, res.err
	case <-timer.C:
		return c.abandon(req.ID, ch, fmt.Errorf("%w: %s %s after %s", domain.ErrCallTimeout, c.name, method, c.timeout))
	case <-ctx.Done():
		return c.abandon(req.ID, ch, ctx.Err())
	}

	select {
	case res := <-ch:
		return res.raw, res.err
	case <-timer.C:
		return c.abandon(req.ID, ch, fmt.Errorf("%w: %s %s after %s", domain.ErrCallTimeout, c.name, method, c.timeout))
	case <-ctx.Done():
		return c.abandon(req.ID, ch, ctx.Err())
	}
}

// abandon removes a pending call. If a response got there first, that
// response wins and err is dropped.
func (c *Channel) abandon(id uint64, ch chan result, err error) (json.RawMessage, error) {
	if c.take(id) {
		return nil, err
	}
	res := <-ch
	return res.raw, res.err
}

func (c *Channel) take(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

func (c *Channel) complete(id uint64, res result) bool {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		ch <- res
	}
	return ok
}

// Pending returns the number of in-flight calls.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close fails every pending call with err and stops the writer.
// Only the first call has an effect.
func (c *Channel) Close(err error) {
	if err == nil {
		err = errChannelClosed
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	pending := c.pending
	c.pending = make(map[uint64]chan result)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- result{err: err}
	}
	close(c.done)
}

// Done is closed once the channel has stopped.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) writeLoop(w io.Writer) {
	for {
		select {
		case <-c.done:
			return
		case o := <-c.requests:
			if _, err := w.Write(o.line); err != nil {
				c.complete(o.id, result{err: fmt.Errorf("%w: write to %s: %w", domain.ErrProcessLifecycle, c.name, err)})
			}
		}
	}
}

func (c *Channel) readLoop(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			c.dispatch(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.log.Warn("read failed", "error", err)
			}
			c.Close(fmt.Errorf("%w: %s closed its output", domain.ErrProcessLifecycle, c.name))
			return
		}
	}
}

func (c *Channel) dispatch(line []byte) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		c.log.Warn("skipping malformed line", "error", err, "line", truncate(line, 200))
		return
	}
	if resp.ID == nil {
		c.log.Debug("ignoring message without id")
		return
	}

	res := result{raw: resp.Result}
	if resp.Error != nil {
		res = result{err: fmt.Errorf("%w: %s: %s", domain.ErrToolError, c.name, resp.Error.Message)}
	}
	if !c.complete(*resp.ID, res) {
		c.log.Debug("ignoring response for unknown id", "id", *resp.ID)
	}
}

func truncate(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
