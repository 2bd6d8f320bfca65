package orchestrator

import (
	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/logger"
)

type (
	ResultFn func(result json.RawMessage)
	ErrorFn  func(err error)
)

// Relay delivers commands to game clients through the master.
// Callbacks must be called on the reactor, never from inside SendToPlayer.
type Relay interface {
	SendToPlayer(id int, method string, args []any, onResult ResultFn, onError ErrorFn)
}

// Client is a proxy of a remote game client.
type Client struct {
	Id    int
	Login string
	// Host marks the designated host of the session.
	Host bool
	// Hosting is set once the client was told to host a game
	// or its adapter reports a hosting task.
	Hosting bool

	// GpgnetPort is the local GPGNet server port of the client's adapter.
	GpgnetPort int
	// Phase is the game phase the client was switched to.
	Phase string

	pings map[int]float64
	gone  bool

	relay Relay
	log   *logger.Logger
}

func NewClient(p Player, host bool, relay Relay, log *logger.Logger) *Client {
	return &Client{
		Id:    p.Id,
		Login: p.Login,
		Host:  host,
		Phase: PhaseNone,
		pings: make(map[int]float64),
		relay: relay,
		log:   log.Player(p.Id, p.Login),
	}
}

// Call sends a command to the client. It doesn't wait for the result.
// Without onError, failures are just logged. Results that arrive
// after the client has left the session are dropped.
func (c *Client) Call(method string, args []any, onResult ResultFn, onError ErrorFn) {
	if args == nil {
		args = []any{}
	}
	commandsTotal.WithLabelValues(method).Inc()
	c.log.Debug().Str("method", method).Interface("args", args).Msg("calling")

	if onError == nil {
		onError = func(err error) { c.log.Error().Msgf("error from calling %v: %v", method, err) }
	}
	errFn := func(err error) {
		commandErrorsTotal.WithLabelValues(method).Inc()
		if c.gone {
			return
		}
		onError(err)
	}
	var resFn ResultFn
	if onResult != nil {
		resFn = func(result json.RawMessage) {
			if c.gone {
				c.log.Debug().Str("method", method).Msg("stale result has been dropped")
				return
			}
			onResult(result)
		}
	}
	c.relay.SendToPlayer(c.Id, method, args, resFn, errFn)
}

// IceCommand sends a command to the ICE adapter of the client.
func (c *Client) IceCommand(cmd string, args []any, onResult ResultFn, onError ErrorFn) {
	if args == nil {
		args = []any{}
	}
	c.Call("sendToIceAdapter", []any{cmd, args}, onResult, onError)
}

func (c *Client) Status(fn func(ClientStatus)) {
	c.Call("status", nil, func(raw json.RawMessage) {
		st, err := decode[ClientStatus](raw)
		if err != nil {
			c.log.Error().Err(err).Msg("malformed client status")
			return
		}
		fn(st)
	}, nil)
}

func (c *Client) IceStatus(fn func(IceStatus)) {
	c.IceCommand("status", nil, func(raw json.RawMessage) {
		st, err := decode[IceStatus](raw)
		if err != nil {
			c.log.Error().Err(err).Msg("malformed ICE adapter status")
			return
		}
		fn(st)
	}, nil)
}

// Ping returns the last reported ping to the remote client
// and whether a ping tracker for it exists.
func (c *Client) Ping(remote int) (float64, bool) {
	v, ok := c.pings[remote]
	return v, ok
}

func (c *Client) String() string { return c.Login }
