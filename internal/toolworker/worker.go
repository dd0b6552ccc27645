// Package toolworker implements the worker side of the tool protocol.
//
// A worker reads one JSON request per line from its input, runs the named
// tool, and writes one JSON response per line to its output. Calls run
// concurrently and responses may be written out of order. Readiness is
// announced once on the diagnostic stream.
package toolworker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/custodia-labs/quarry/internal/adapters/driven/toolproc"
)

// ToolFunc runs one tool call. The returned value is encoded as the result.
type ToolFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is a named operation a worker serves.
type Tool struct {
	Name        string
	Description string
	Run         ToolFunc
}

// Worker dispatches protocol requests to tools.
type Worker struct {
	name  string
	tools map[string]Tool

	writeMu sync.Mutex
}

// New creates a worker serving tools.
func New(name string, tools ...Tool) *Worker {
	w := &Worker{name: name, tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		w.tools[t.Name] = t
	}
	return w
}

// ReadyLine is the readiness announcement written to the diagnostic stream.
func (w *Worker) ReadyLine() string {
	return w.name + " tool server running on stdio"
}

// Serve handles requests until in reaches EOF or ctx is cancelled.
// In-flight calls are finished before Serve returns on EOF.
func (w *Worker) Serve(ctx context.Context, in io.Reader, out, diag io.Writer) error {
	if _, err := fmt.Fprintln(diag, w.ReadyLine()); err != nil {
		return fmt.Errorf("announce readiness: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		br := bufio.NewReader(in)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read requests: %w", err)
		case line := <-lines:
			var req toolproc.Request
			if err := json.Unmarshal(line, &req); err != nil {
				fmt.Fprintf(diag, "%s: skipping malformed request: %v\n", w.name, err)
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.respond(out, diag, w.handle(ctx, req))
			}()
		}
	}
}

func (w *Worker) handle(ctx context.Context, req toolproc.Request) toolproc.Response {
	id := req.ID
	resp := toolproc.Response{ID: &id}

	result, err := w.dispatch(ctx, req)
	if err != nil {
		resp.Error = &toolproc.RPCError{Message: err.Error()}
		return resp
	}
	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = &toolproc.RPCError{Message: "encode result: " + err.Error()}
		return resp
	}
	resp.Result = raw
	return resp
}

func (w *Worker) dispatch(ctx context.Context, req toolproc.Request) (any, error) {
	switch req.Method {
	case toolproc.MethodList:
		return toolproc.ListResult{Tools: w.descriptors()}, nil
	case toolproc.MethodCall:
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
		tool, ok := w.tools[params.Name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", params.Name)
		}
		if len(params.Arguments) == 0 {
			params.Arguments = json.RawMessage("{}")
		}
		return tool.Run(ctx, params.Arguments)
	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}
}

func (w *Worker) descriptors() []toolproc.ToolDescriptor {
	out := make([]toolproc.ToolDescriptor, 0, len(w.tools))
	for _, t := range w.tools {
		out = append(out, toolproc.ToolDescriptor{Name: t.Name, Description: t.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (w *Worker) respond(out, diag io.Writer, resp toolproc.Response) {
	line, err := json.Marshal(resp)
	if err != nil {
		fmt.Fprintf(diag, "%s: encode response: %v\n", w.name, err)
		return
	}
	line = append(line, '\n')

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if _, err := out.Write(line); err != nil {
		fmt.Fprintf(diag, "%s: write response: %v\n", w.name, err)
	}
}
