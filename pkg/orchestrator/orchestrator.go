// Package orchestrator drives game clients through the setup of
// a peer-to-peer game session.
//
// Every client has two machines: IceAdapter brings its ICE adapter process
// up to the point where it has ICE servers, GPGNet walks the game through
// its protocol phases until it's hosting or joining. Ready clients are
// meshed by the Topology, one P2PConnection per direction.
//
// The machines are polled: a client status is requested periodically
// and every changed snapshot is fed into them. Master events are pushed
// into the Session dispatcher. All of that happens on a single reactor
// goroutine.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/config"
	"github.com/iceorch/iceorch/pkg/ice"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/loop"
	"github.com/iceorch/iceorch/pkg/network"
	"github.com/iceorch/iceorch/pkg/rpc"
)

// Orchestrator is the controller of a master.
type Orchestrator struct {
	conf config.Orchestrator
	loop *loop.Loop
	env  *env

	// reactor-owned
	peer    *rpc.Peer
	session *Session
	roster  *loop.Repeat

	cancel context.CancelFunc
	done   chan struct{}
	log    *logger.Logger
}

func New(conf config.Orchestrator, secret ice.Secret, log *logger.Logger) *Orchestrator {
	l := loop.New(log)
	return &Orchestrator{
		conf: conf,
		loop: l,
		env:  &env{sched: l, conf: conf, secret: secret},
		done: make(chan struct{}),
		log:  log,
	}
}

func (o *Orchestrator) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	go o.loop.Run(ctx)
	go func() {
		defer close(o.done)
		o.run(ctx)
	}()
}

func (o *Orchestrator) Shutdown(ctx context.Context) error {
	if o.cancel == nil {
		return nil
	}
	o.cancel()
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) String() string { return fmt.Sprintf("orchestrator::%v", o.conf.Master.Address) }

// run keeps the master link up until the context is done.
func (o *Orchestrator) run(ctx context.Context) {
	if o.conf.Turn.Probe {
		o.probe(ctx)
	}
	address := network.Address(o.conf.Master.Address)
	retry := network.NewRetry(o.conf.Master.Reconnect, o.conf.Master.ReconnectMax)
	for {
		wait := retry.Time()
		peer, closed, err := rpc.Dial(ctx, address, o.log)
		if err != nil {
			wait = retry.Fail()
			o.log.Error().Err(err).Msgf("Couldn't connect to the master at %v, next try in %v", address, wait)
		} else {
			retry.Success()
			wait = retry.Time()
			peer.SetTimeout(o.conf.Master.CallTimeout)
			o.log.Info().Msgf("Connected to the master at %v", address)
			peer.Handle("onMasterEvent", o.onMasterEvent)
			o.loop.Post(func() { o.attach(peer) })
			select {
			case <-closed:
				o.log.Warn().Msg("Master connection is lost")
			case <-ctx.Done():
				_ = peer.Close()
			}
			o.loop.Post(o.detach)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (o *Orchestrator) probe(ctx context.Context) {
	addr := o.conf.Turn.Host
	if _, err := network.Address(addr).Port(); err != nil {
		addr += ":3478"
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	mapped, err := ice.Probe(ctx, addr)
	if err != nil {
		o.log.Warn().Err(err).Msgf("STUN probe of %v has failed", addr)
		return
	}
	o.log.Info().Msgf("STUN probe of %v, mapped address: %v", addr, mapped)
}

func (o *Orchestrator) attach(peer *rpc.Peer) {
	o.peer = peer
	peer.Call("master", nil,
		func(json.RawMessage) {
			o.loop.Post(func() {
				if o.peer != peer {
					return
				}
				o.log.Info().Msg("Subscribed to the master events")
				o.pollRoster()
				o.roster = loop.Every(o.loop, o.conf.Master.RosterPoll, o.pollRoster)
			})
		},
		func(err error) { o.log.Error().Msgf("error from calling master: %v", err) },
	)
}

func (o *Orchestrator) detach() {
	if o.roster != nil {
		o.roster.Stop()
		o.roster = nil
	}
	o.endSession()
	o.peer = nil
}

func (o *Orchestrator) pollRoster() {
	peer := o.peer
	if peer == nil {
		return
	}
	peer.Call("players", nil,
		func(raw json.RawMessage) {
			o.loop.Post(func() {
				if o.peer != peer {
					return
				}
				players, err := decode[[]Player](raw)
				if err != nil {
					o.log.Error().Err(err).Msg("malformed player list")
					return
				}
				o.syncRoster(players)
			})
		},
		func(err error) { o.log.Error().Msgf("error from calling players: %v", err) },
	)
}

// syncRoster starts a session with the first player as the host
// and ends it when the host leaves.
func (o *Orchestrator) syncRoster(players []Player) {
	if o.session == nil {
		if len(players) == 0 {
			return
		}
		o.log.Info().Msgf("%v players ready", len(players))
		o.session = NewSession(players[0], relay{o}, o.env, o.log)
	}
	if !o.session.Sync(players) {
		o.endSession()
	}
}

func (o *Orchestrator) endSession() {
	if o.session != nil {
		o.session.Close()
		o.session = nil
	}
}

// onMasterEvent handles (event, playerId, args...) notifications.
// It runs on the connection goroutine.
func (o *Orchestrator) onMasterEvent(params []json.RawMessage) (any, error) {
	if len(params) < 2 {
		return nil, rpc.NewError(rpc.CodeInvalidParams, "expected event and player id")
	}
	var event string
	var id int
	if err := json.Unmarshal(params[0], &event); err != nil {
		return nil, rpc.NewError(rpc.CodeInvalidParams, "bad event name: %v", err)
	}
	if err := json.Unmarshal(params[1], &id); err != nil {
		return nil, rpc.NewError(rpc.CodeInvalidParams, "bad player id: %v", err)
	}
	args := unwrap(params[2:])
	o.loop.Post(func() {
		if o.session == nil {
			unhandledEvents.WithLabelValues(event).Inc()
			o.log.Debug().Msgf("master event %v of %v without a session", event, id)
			return
		}
		o.session.Dispatch(event, id, args)
	})
	return nil, nil
}

// relay sends client commands through the sendToPlayer of the master.
// Results are posted back into the reactor.
type relay struct{ o *Orchestrator }

func (r relay) SendToPlayer(id int, method string, args []any, onResult ResultFn, onError ErrorFn) {
	l := r.o.loop
	peer := r.o.peer
	if peer == nil {
		if onError != nil {
			l.Post(func() { onError(rpc.ErrClosed) })
		}
		return
	}
	var res rpc.ResultFn
	if onResult != nil {
		res = func(v json.RawMessage) { l.Post(func() { onResult(v) }) }
	}
	var fail rpc.ErrorFn
	if onError != nil {
		fail = func(err error) { l.Post(func() { onError(err) }) }
	}
	peer.Call("sendToPlayer", []any{id, method, args}, res, fail)
}
