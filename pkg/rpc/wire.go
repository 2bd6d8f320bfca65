package rpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/network"
	"github.com/iceorch/iceorch/pkg/network/websocket"
)

// streamWire frames messages as concatenated JSON objects over a byte stream,
// each followed by a newline.
type streamWire struct {
	conn io.ReadWriteCloser
	mu   sync.Mutex
}

func (w *streamWire) Write(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.conn.Write(append(frame, '\n')); err != nil {
		return err
	}
	return nil
}

func (w *streamWire) Close() error { return w.conn.Close() }

// NewStreamPeer creates a peer over a raw stream and starts reading it.
// The done channel is closed when the stream ends.
func NewStreamPeer(conn io.ReadWriteCloser, log *logger.Logger) (*Peer, <-chan struct{}) {
	peer := NewPeer(&streamWire{conn: conn}, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		dec := json.NewDecoder(conn)
		for {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				if err != io.EOF {
					peer.log.Debug().Err(err).Msg("[rpc] stream read")
				}
				_ = conn.Close()
				peer.drain(ErrClosed)
				return
			}
			peer.Receive(raw)
		}
	}()
	return peer, done
}

type wsWire struct{ ws *websocket.WS }

func (w wsWire) Write(frame []byte) error { return w.ws.Write(frame) }
func (w wsWire) Close() error             { return w.ws.Close() }

// NewWebsocketPeer creates a peer over a websocket connection
// with one message per frame.
func NewWebsocketPeer(ws *websocket.WS, log *logger.Logger) (*Peer, <-chan struct{}) {
	peer := NewPeer(wsWire{ws: ws}, log)
	ws.OnMessage = peer.Receive
	ws.Listen()
	done := make(chan struct{})
	go func() {
		<-ws.Done
		peer.drain(ErrClosed)
		close(done)
	}()
	return peer, done
}

// Dial connects to the address choosing the framing by its scheme.
func Dial(ctx context.Context, address network.Address, log *logger.Logger) (*Peer, <-chan struct{}, error) {
	if err := address.Validate(); err != nil {
		return nil, nil, fmt.Errorf("bad address %v: %w", address, err)
	}
	if address.IsWebsocket() {
		ws, err := websocket.Dial(ctx, string(address), log)
		if err != nil {
			return nil, nil, err
		}
		peer, done := NewWebsocketPeer(ws, log)
		return peer, done, nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address.HostPort())
	if err != nil {
		return nil, nil, err
	}
	peer, done := NewStreamPeer(conn, log)
	return peer, done, nil
}
