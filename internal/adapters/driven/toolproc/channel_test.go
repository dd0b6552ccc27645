package toolproc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// pipeWorker is the far side of a Channel: it reads requests and writes
// whatever lines the test decides.
type pipeWorker struct {
	requests chan Request
	out      *io.PipeWriter
}

func newPipePair(t *testing.T, timeout time.Duration) (*Channel, *pipeWorker) {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	w := &pipeWorker{requests: make(chan Request, 16), out: respW}
	go func() {
		sc := bufio.NewScanner(reqR)
		for sc.Scan() {
			var req Request
			if err := json.Unmarshal(sc.Bytes(), &req); err == nil {
				w.requests <- req
			}
		}
	}()

	c := NewChannel("test", respR, reqW, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() {
		respW.Close()
		reqW.Close()
	})
	return c, w
}

func (w *pipeWorker) send(t *testing.T, line string) {
	t.Helper()
	_, err := io.WriteString(w.out, line+"\n")
	assert.NoError(t, err)
}

func (w *pipeWorker) reply(t *testing.T, id uint64, result string) {
	w.send(t, fmt.Sprintf(`{"id":%d,"result":%s}`, id, result))
}

func (w *pipeWorker) next(t *testing.T) Request {
	t.Helper()
	select {
	case r := <-w.requests:
		return r
	case <-time.After(2 * time.Second):
		t.Error("worker received no request")
		return Request{}
	}
}

func TestChannel_CallRoundTrip(t *testing.T) {
	c, w := newPipePair(t, time.Second)

	go func() {
		req := w.next(t)
		assert.Equal(t, MethodCall, req.Method)
		assert.JSONEq(t, `{"name":"echo","arguments":{"x":1}}`, string(req.Params))
		w.reply(t, req.ID, `{"ok":true}`)
	}()

	raw, err := c.Call(context.Background(), MethodCall, CallParams{Name: "echo", Arguments: map[string]any{"x": 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Zero(t, c.Pending())
}

func TestChannel_OutOfOrderResponses(t *testing.T) {
	c, w := newPipePair(t, 2*time.Second)

	type outcome struct {
		label string
		raw   json.RawMessage
		err   error
	}
	results := make(chan outcome, 3)
	var wg sync.WaitGroup
	for _, label := range []string{"A", "B", "C"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, err := c.Call(context.Background(), MethodCall, CallParams{Name: label})
			results <- outcome{label: label, raw: raw, err: err}
		}()
	}

	byName := make(map[string]uint64)
	for i := 0; i < 3; i++ {
		req := w.next(t)
		var p CallParams
		require.NoError(t, json.Unmarshal(req.Params, &p))
		byName[p.Name] = req.ID
	}

	for _, label := range []string{"C", "A", "B"} {
		w.reply(t, byName[label], fmt.Sprintf(`{"label":%q}`, label))
	}
	wg.Wait()
	close(results)

	for r := range results {
		require.NoError(t, r.err)
		assert.JSONEq(t, fmt.Sprintf(`{"label":%q}`, r.label), string(r.raw))
	}
}

func TestChannel_TimeoutThenLateResponse(t *testing.T) {
	c, w := newPipePair(t, 50*time.Millisecond)

	_, err := c.Call(context.Background(), MethodCall, CallParams{Name: "slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCallTimeout)
	assert.Zero(t, c.Pending(), "timed out call must not stay pending")

	late := w.next(t)
	w.reply(t, late.ID, `{"late":true}`)

	// The channel keeps working after the late response is discarded.
	go func() {
		req := w.next(t)
		w.reply(t, req.ID, `{"fresh":true}`)
	}()
	raw, err := c.Call(context.Background(), MethodCall, CallParams{Name: "fast"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fresh":true}`, string(raw))
}

func TestChannel_MalformedAndUnknownLinesAreSkipped(t *testing.T) {
	c, w := newPipePair(t, time.Second)

	go func() {
		req := w.next(t)
		w.send(t, `this is not json`)
		w.send(t, `{"id":`)
		w.send(t, `{"id":9999,"result":{}}`)
		w.send(t, `{"method":"notifications/progress"}`)
		w.reply(t, req.ID, `"done"`)
	}()

	raw, err := c.Call(context.Background(), MethodList, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"done"`, string(raw))
}

func TestChannel_ErrorResponse(t *testing.T) {
	c, w := newPipePair(t, time.Second)

	go func() {
		req := w.next(t)
		w.send(t, fmt.Sprintf(`{"id":%d,"error":{"message":"unknown tool"}}`, req.ID))
	}()

	_, err := c.Call(context.Background(), MethodCall, CallParams{Name: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrToolError)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestChannel_LongLine(t *testing.T) {
	c, w := newPipePair(t, time.Second)
	big := make([]byte, 256*1024)
	for i := range big {
		big[i] = 'x'
	}

	go func() {
		req := w.next(t)
		w.reply(t, req.ID, fmt.Sprintf(`{"body":%q}`, big))
	}()

	raw, err := c.Call(context.Background(), MethodCall, CallParams{Name: "big"})
	require.NoError(t, err)
	var out struct{ Body string }
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Len(t, out.Body, len(big))
}

func TestChannel_CloseFailsPending(t *testing.T) {
	c, w := newPipePair(t, 5*time.Second)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), MethodCall, CallParams{Name: "hang"})
		errCh <- err
	}()
	w.next(t)

	w.out.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, domain.ErrProcessLifecycle)
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not failed on close")
	}

	_, err := c.Call(context.Background(), MethodList, nil)
	assert.ErrorIs(t, err, domain.ErrProcessLifecycle)
	<-c.Done()
}

func TestChannel_ContextCancel(t *testing.T) {
	c, w := newPipePair(t, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		w.next(t)
		cancel()
	}()

	_, err := c.Call(ctx, MethodCall, CallParams{Name: "x"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, c.Pending())
}
