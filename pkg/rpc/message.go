package rpc

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

const Version = "2.0"

// Standard error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

type (
	// message is the union of requests, notifications and responses.
	// Requests carry a method, responses carry a result or an error.
	message struct {
		Version string          `json:"jsonrpc"`
		Id      json.RawMessage `json:"id,omitempty"`
		Method  string          `json:"method,omitempty"`
		Params  json.RawMessage `json:"params,omitempty"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   json.RawMessage `json:"error,omitempty"`
	}
	request struct {
		Version string `json:"jsonrpc"`
		Id      *int64 `json:"id,omitempty"`
		Method  string `json:"method"`
		Params  []any  `json:"params"`
	}
	response struct {
		Version string          `json:"jsonrpc"`
		Id      json.RawMessage `json:"id"`
		Result  any             `json:"result,omitempty"`
		Error   *Error          `json:"error,omitempty"`
	}
)

// Error is a remote error. Some peers send bare strings
// instead of error objects, those end up in Message with Code 0.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("%v (%d)", e.Message, e.Code)
}

func NewError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (m *message) isRequest() bool { return m.Method != "" }

func (m *message) intId() (int64, bool) {
	if len(m.Id) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(string(m.Id), 10, 64)
	return id, err == nil
}

// remoteError decodes the error member, which may be either
// a proper error object or any other JSON value.
func (m *message) remoteError() error {
	if len(m.Error) == 0 || string(m.Error) == "null" {
		return nil
	}
	var e Error
	if err := json.Unmarshal(m.Error, &e); err == nil && (e.Message != "" || e.Code != 0) {
		return &e
	}
	var s string
	if err := json.Unmarshal(m.Error, &s); err == nil {
		return &Error{Message: s}
	}
	return &Error{Message: string(m.Error)}
}

// Args splits positional params into raw values.
func Args(params json.RawMessage) ([]json.RawMessage, error) {
	if len(params) == 0 || string(params) == "null" {
		return nil, nil
	}
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, fmt.Errorf("params should be an array: %w", err)
	}
	return args, nil
}
