package orchestrator

import (
	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/ice"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/loop"
)

type IceState uint8

const (
	IceInitial IceState = iota
	IceNotRunning
	IceNotConnected
	IceNoServers
	IceReady
)

var iceStates = [...]string{"initial", "not_running", "not_connected", "no_ice_servers", "ready"}

func (s IceState) String() string { return iceStates[s] }

// iceStep is the transition table of the adapter lifecycle.
// The no_ice_servers -> ready step isn't here, it happens
// only when the servers were accepted by the adapter.
func iceStep(s IceState, st ClientStatus) (IceState, []Effect) {
	switch s {
	case IceInitial:
		switch {
		case st.AdapterOpen && st.AdapterConnected:
			return IceNoServers, []Effect{PushServers}
		case !st.AdapterOpen:
			return IceNotRunning, []Effect{StartAdapter, PollStatus}
		default:
			return IceNotConnected, []Effect{ConnectAdapter, PollStatusLater}
		}
	case IceNotRunning:
		if st.AdapterOpen {
			return IceNotConnected, []Effect{ConnectAdapter, PollStatusLater}
		}
	case IceNotConnected:
		if st.AdapterConnected {
			return IceNoServers, []Effect{PushServers}
		}
	}
	return s, nil
}

// IceAdapter drives the ICE adapter process of a client
// until it has ICE servers.
type IceAdapter struct {
	c     *Client
	state IceState
	last  *ClientStatus

	pushing    bool
	pushFailed bool
	readyFired bool
	timer      loop.Timer

	// poll requests a fresh client status.
	poll func()
	// onConnected is called when the adapter accepts commands.
	onConnected func()
	onReady     func()

	env *env
	log *logger.Logger
}

func newIceAdapter(c *Client, env *env, poll func()) *IceAdapter {
	return &IceAdapter{
		c:    c,
		env:  env,
		poll: poll,
		log:  c.log.Extend(c.log.With().Str(logger.MachineField, "ice")),
	}
}

func (a *IceAdapter) State() IceState { return a.state }

// SetStatus feeds a client status snapshot.
// Snapshots equal to the previous one are ignored.
func (a *IceAdapter) SetStatus(st ClientStatus) {
	if a.last != nil && a.last.Equal(st) {
		return
	}
	a.last = &st

	if a.state == IceNoServers && a.pushFailed && !a.pushing {
		a.push()
		return
	}
	if next, eff := iceStep(a.state, st); next != a.state {
		a.enter(next, eff)
	}
}

func (a *IceAdapter) enter(s IceState, eff []Effect) {
	a.state = s
	transition("ice_adapter", s.String())
	a.log.Info().Msgf("ICE adapter state changed to %v", s)
	for _, e := range eff {
		a.apply(e)
	}
	if s == IceNoServers && a.onConnected != nil {
		a.onConnected()
	}
}

func (a *IceAdapter) apply(e Effect) {
	switch e {
	case StartAdapter:
		a.c.Call("startIceAdapter", nil, nil, nil)
	case ConnectAdapter:
		a.c.Call("connectToIceAdapter", nil, nil, nil)
	case PollStatus:
		a.poll()
	case PollStatusLater:
		a.stopTimer()
		a.timer = a.env.sched.After(a.env.conf.Poll.AdapterConnect, a.poll)
	case PushServers:
		a.push()
	case FireReady:
		if a.readyFired {
			return
		}
		a.readyFired = true
		if a.onReady != nil {
			a.onReady()
		}
	}
}

// push mints fresh TURN credentials and hands them to the adapter.
func (a *IceAdapter) push() {
	conf := a.env.conf
	creds := ice.Mint(a.c.Login, a.env.secret.Secret(), conf.Turn.Ttl, a.env.sched.Now())
	servers := ice.TurnServers(conf.Turn.Host, creds)

	a.pushing = true
	a.c.IceCommand("setIceServers", []any{servers},
		func(json.RawMessage) {
			a.pushing, a.pushFailed = false, false
			if a.state != IceNoServers {
				return
			}
			a.c.IceCommand("setLobbyInitMode", []any{conf.Game.LobbyInitMode}, nil, nil)
			a.enter(IceReady, []Effect{FireReady})
		},
		func(err error) {
			a.pushing, a.pushFailed = false, true
			a.log.Error().Msgf("error from calling setIceServers: %v", err)
		})
}

func (a *IceAdapter) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *IceAdapter) close() { a.stopTimer() }
