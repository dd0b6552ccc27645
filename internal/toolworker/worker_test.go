package toolworker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/adapters/driven/toolproc"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testWorker() *Worker {
	return New("test",
		Tool{
			Name:        "echo",
			Description: "Returns its arguments",
			Run: func(_ context.Context, args json.RawMessage) (any, error) {
				return args, nil
			},
		},
		Tool{
			Name: "fail",
			Run: func(context.Context, json.RawMessage) (any, error) {
				return nil, errors.New("boom")
			},
		},
	)
}

func serveLines(t *testing.T, w *Worker, input string) (map[uint64]toolproc.Response, string) {
	t.Helper()
	var out, diag syncBuffer

	err := w.Serve(context.Background(), strings.NewReader(input), &out, &diag)
	require.NoError(t, err)

	responses := make(map[uint64]toolproc.Response)
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var resp toolproc.Response
		require.NoError(t, json.Unmarshal(sc.Bytes(), &resp))
		require.NotNil(t, resp.ID)
		responses[*resp.ID] = resp
	}
	return responses, diag.String()
}

func TestServe_AnnouncesReadiness(t *testing.T) {
	_, diag := serveLines(t, testWorker(), "")
	assert.Contains(t, diag, "test tool server running on stdio")
}

func TestServe_Dispatch(t *testing.T) {
	input := strings.Join([]string{
		`{"id":1,"method":"tools/call","params":{"name":"echo","arguments":{"q":"hi"}}}`,
		`{"id":2,"method":"tools/call","params":{"name":"fail"}}`,
		`{"id":3,"method":"tools/call","params":{"name":"missing"}}`,
		`{"id":4,"method":"tools/list"}`,
		`{"id":5,"method":"resources/list"}`,
		`garbage`,
	}, "\n") + "\n"

	responses, diag := serveLines(t, testWorker(), input)
	require.Len(t, responses, 5)

	assert.JSONEq(t, `{"q":"hi"}`, string(responses[1].Result))
	assert.Equal(t, "boom", responses[2].Error.Message)
	assert.Contains(t, responses[3].Error.Message, "unknown tool")
	assert.Contains(t, responses[5].Error.Message, "unknown method")
	assert.Contains(t, diag, "malformed request")

	var list toolproc.ListResult
	require.NoError(t, json.Unmarshal(responses[4].Result, &list))
	require.Len(t, list.Tools, 2)
	assert.Equal(t, "echo", list.Tools[0].Name)
	assert.Equal(t, "Returns its arguments", list.Tools[0].Description)
}

func TestServe_ContextCancel(t *testing.T) {
	inR, inW := io.Pipe()
	defer inW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- testWorker().Serve(ctx, inR, io.Discard, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
