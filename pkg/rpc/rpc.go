// Package rpc implements a symmetric JSON-RPC 2.0 peer.
//
// Both sides of a connection may issue requests. Outgoing calls never block:
// the result is delivered later into one of the callbacks provided with the call.
// The package doesn't do any framing itself, that's the job of a Wire.
package rpc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/logger"
)

var nullId = json.RawMessage("null")

var (
	ErrClosed  = errors.New("connection closed")
	ErrTimeout = errors.New("call timeout")
)

// Wire sends whole encoded messages to the other side.
type Wire interface {
	Write(frame []byte) error
	Close() error
}

type (
	// Handler processes an inbound request.
	// Its result is sent back only if the request had an id.
	Handler func(args []json.RawMessage) (any, error)

	// ResultFn receives the raw result of a call.
	ResultFn func(result json.RawMessage)
	// ErrorFn receives call failures, both remote and local.
	ErrorFn func(err error)
)

type call struct {
	method   string
	onResult ResultFn
	onError  ErrorFn
	timer    *time.Timer
}

type Peer struct {
	wire Wire

	mu       sync.Mutex
	id       int64
	pending  map[int64]*call
	handlers map[string]Handler
	closed   bool
	timeout  time.Duration

	// OnClose is called once the connection is gone.
	OnClose func(err error)

	log *logger.Logger
}

func NewPeer(wire Wire, log *logger.Logger) *Peer {
	if log == nil {
		log = logger.Default()
	}
	return &Peer{
		wire:     wire,
		pending:  make(map[int64]*call, 8),
		handlers: make(map[string]Handler, 4),
		log:      log,
	}
}

// Handle registers a handler for inbound requests of the method.
func (p *Peer) Handle(method string, h Handler) {
	p.mu.Lock()
	p.handlers[method] = h
	p.mu.Unlock()
}

// SetTimeout makes calls without a response after d fail with ErrTimeout.
// Zero means no limit.
func (p *Peer) SetTimeout(d time.Duration) {
	p.mu.Lock()
	p.timeout = d
	p.mu.Unlock()
}

// Call sends a request. Callbacks may be nil, and when both are nil
// the request goes out as a notification. Exactly one of
// the callbacks will be called at most once.
func (p *Peer) Call(method string, params []any, onResult ResultFn, onError ErrorFn) {
	if params == nil {
		params = []any{}
	}
	rq := request{Version: Version, Method: method, Params: params}

	var c *call
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		fail(onError, ErrClosed)
		return
	}
	if onResult != nil || onError != nil {
		id := p.id
		p.id++
		rq.Id = &id
		c = &call{method: method, onResult: onResult, onError: onError}
		if p.timeout > 0 {
			c.timer = time.AfterFunc(p.timeout, func() {
				if c := p.pop(id); c != nil {
					fail(c.onError, fmt.Errorf("%v: %w", method, ErrTimeout))
				}
			})
		}
		p.pending[id] = c
	}
	p.mu.Unlock()

	frame, err := json.Marshal(rq)
	if err == nil {
		err = p.wire.Write(frame)
	}
	if err != nil {
		if rq.Id != nil && p.pop(*rq.Id) == nil {
			return
		}
		fail(onError, fmt.Errorf("%v: %w", method, err))
	}
}

// Notify sends a request without an id.
func (p *Peer) Notify(method string, params ...any) { p.Call(method, params, nil, nil) }

// Receive processes one inbound frame.
func (p *Peer) Receive(frame []byte) {
	var m message
	if err := json.Unmarshal(frame, &m); err != nil {
		p.log.Error().Err(err).Msg("[rpc] malformed message")
		p.reply(response{Version: Version, Id: nullId, Error: NewError(CodeParseError, "parse error")})
		return
	}
	if m.isRequest() {
		p.serve(&m)
		return
	}
	id, ok := m.intId()
	if !ok {
		p.log.Warn().Str("id", string(m.Id)).Msg("[rpc] response with unknown id")
		return
	}
	c := p.pop(id)
	if c == nil {
		p.log.Warn().Int64("id", id).Msg("[rpc] response for no call")
		return
	}
	if err := m.remoteError(); err != nil {
		fail(c.onError, err)
		return
	}
	if c.onResult != nil {
		c.onResult(m.Result)
	}
}

func (p *Peer) serve(m *message) {
	p.mu.Lock()
	h, ok := p.handlers[m.Method]
	p.mu.Unlock()

	var result any
	var err error
	switch args, aErr := Args(m.Params); {
	case aErr != nil:
		err = NewError(CodeInvalidParams, "%v", aErr)
	case !ok:
		err = NewError(CodeMethodNotFound, "method %v not found", m.Method)
	default:
		result, err = h(args)
	}

	if len(m.Id) == 0 {
		if err != nil {
			p.log.Error().Err(err).Str("method", m.Method).Msg("[rpc] notification")
		}
		return
	}
	rs := response{Version: Version, Id: m.Id, Result: result}
	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			e = &Error{Code: CodeInternal, Message: err.Error()}
		}
		rs.Error, rs.Result = e, nil
	} else if result == nil {
		// responses must carry either a result or an error
		rs.Result = true
	}
	p.reply(rs)
}

func (p *Peer) reply(rs response) {
	frame, err := json.Marshal(rs)
	if err != nil {
		p.log.Error().Err(err).Msg("[rpc] response encoding")
		return
	}
	if err = p.wire.Write(frame); err != nil {
		p.log.Error().Err(err).Msg("[rpc] response write")
	}
}

// Close closes the wire and fails all pending calls.
func (p *Peer) Close() error {
	err := p.wire.Close()
	p.drain(ErrClosed)
	return err
}

// Pending returns the number of calls awaiting a response.
func (p *Peer) Pending() int { p.mu.Lock(); defer p.mu.Unlock(); return len(p.pending) }

func (p *Peer) pop(id int64) *call {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.pending[id]
	delete(p.pending, id)
	if c != nil && c.timer != nil {
		c.timer.Stop()
	}
	return c
}

// drain cancels all what's left in the call queue.
func (p *Peer) drain(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	calls := p.pending
	p.pending = make(map[int64]*call)
	onClose := p.OnClose
	p.mu.Unlock()

	for _, c := range calls {
		if c.timer != nil {
			c.timer.Stop()
		}
		fail(c.onError, fmt.Errorf("%v: %w", c.method, err))
	}
	if onClose != nil {
		onClose(err)
	}
}

func fail(fn ErrorFn, err error) {
	if fn != nil {
		fn(err)
	}
}
