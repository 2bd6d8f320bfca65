package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iceorch/iceorch/pkg/logger"
)

const (
	maxMessageSize = 64 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
)

var ErrClosed = errors.New("websocket closed")

// WS is a message-oriented websocket connection with
// serialized reads and writes.
type WS struct {
	sock *websocket.Conn
	send chan []byte
	quit chan struct{}

	// OnMessage is called from the reader goroutine for every text frame.
	OnMessage func(message []byte)

	pingPong bool
	once     sync.Once
	shutdown sync.WaitGroup
	Done     chan struct{}

	log *logger.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	WriteBufferPool: &sync.Pool{},
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Upgrade turns an incoming HTTP request into a server-side connection.
func Upgrade(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*WS, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, true, log), nil
}

// Dial connects to a websocket server.
func Dial(ctx context.Context, address string, log *logger.Logger) (*WS, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, false, log), nil
}

func newSocket(conn *websocket.Conn, pingPong bool, log *logger.Logger) *WS {
	if log == nil {
		log = logger.Default()
	}
	return &WS{
		sock:     conn,
		send:     make(chan []byte, 32),
		quit:     make(chan struct{}),
		pingPong: pingPong,
		Done:     make(chan struct{}),
		log:      log,
	}
}

// Listen starts the read and write pumps.
// OnMessage should be set before.
func (ws *WS) Listen() {
	ws.shutdown.Add(2)
	go ws.writer()
	go ws.reader()
	go func() {
		ws.shutdown.Wait()
		_ = ws.sock.Close()
		close(ws.Done)
	}()
}

// reader pumps messages from the websocket connection to the OnMessage callback.
func (ws *WS) reader() {
	defer func() {
		ws.stop()
		ws.shutdown.Done()
		ws.log.Debug().Msg("[ws] reader closed")
	}()
	ws.sock.SetReadLimit(maxMessageSize)
	if ws.pingPong {
		_ = ws.sock.SetReadDeadline(time.Now().Add(pongTime))
		ws.sock.SetPongHandler(func(string) error { return ws.sock.SetReadDeadline(time.Now().Add(pongTime)) })
	}
	for {
		_, message, err := ws.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Error().Err(err).Msg("[ws] read")
			}
			return
		}
		if ws.OnMessage != nil {
			ws.OnMessage(message)
		}
	}
}

// writer pumps messages from the send channel to the websocket connection.
func (ws *WS) writer() {
	ticker := time.NewTicker(pingTime)
	defer func() {
		ticker.Stop()
		ws.stop()
		ws.shutdown.Done()
		ws.log.Debug().Msg("[ws] writer closed")
	}()
	for {
		select {
		case message := <-ws.send:
			if err := ws.write(websocket.TextMessage, message); err != nil {
				ws.log.Error().Err(err).Msg("[ws] write")
				return
			}
		case <-ticker.C:
			if !ws.pingPong {
				continue
			}
			if err := ws.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ws.quit:
			_ = ws.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Write queues a message for sending.
func (ws *WS) Write(data []byte) error {
	select {
	case <-ws.quit:
		return ErrClosed
	default:
	}
	select {
	case ws.send <- data:
		return nil
	case <-ws.quit:
		return ErrClosed
	}
}

// Close initiates a graceful shutdown.
func (ws *WS) Close() error { ws.stop(); return nil }

func (ws *WS) stop() {
	ws.once.Do(func() {
		close(ws.quit)
		// unblocks the reader
		_ = ws.sock.SetReadDeadline(time.Now().Add(writeWait))
	})
}

func (ws *WS) write(t int, message []byte) error {
	if err := ws.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.sock.WriteMessage(t, message)
}
