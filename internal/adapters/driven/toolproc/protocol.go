package toolproc

import "encoding/json"

// Protocol methods.
const (
	MethodCall = "tools/call"
	MethodList = "tools/list"
)

// Request is one call sent to a worker.
type Request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one reply from a worker. ID is nil for messages that are not
// replies, which the channel ignores.
type Response struct {
	ID     *uint64         `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object carried by a failed response.
type RPCError struct {
	Message string `json:"message"`
}

// CallParams are the params of a tools/call request.
type CallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDescriptor describes one tool in a tools/list result.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListResult is the result of a tools/list request.
type ListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}
