package orchestrator

import (
	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/loop"
)

type GpgState uint8

const (
	GpgNoState GpgState = iota
	GpgNotConnected
	GpgNone
	GpgIdle
	GpgLobby
	GpgHosting
	GpgJoining
)

var gpgStates = [...]string{"no_state", "not_connected", "none", "idle", "lobby", "hosting", "joining"}

func (s GpgState) String() string { return gpgStates[s] }

// GPGNet protocol messages sent by the adapter to the game.
const (
	MsgCreateLobby   = "CreateLobby"
	MsgHostGame      = "HostGame"
	MsgJoinGame      = "JoinGame"
	MsgConnectToPeer = "ConnectToPeer"
)

// gpgStep is the polled part of the GPGNet transition table.
// Both snapshots may be nil while unknown. The lobby -> hosting|joining
// steps are driven by protocol messages instead.
func gpgStep(s GpgState, st *ClientStatus, is *IceStatus) (GpgState, []Effect) {
	switch s {
	case GpgNoState:
		if st == nil || !st.AdapterConnected || is == nil {
			return s, nil
		}
		if !st.GpgnetConnected {
			return GpgNotConnected, []Effect{ConnectGpgnet, PollIceLater}
		}
		if is.Gpgnet.Connected {
			return GpgNone, []Effect{SendIdle, PollIce}
		}
	case GpgNotConnected:
		if is != nil && is.Gpgnet.Connected {
			return GpgNone, []Effect{SendIdle, PollIce}
		}
	case GpgNone:
		if is != nil && is.Gpgnet.GameState == PhaseIdle {
			return GpgIdle, []Effect{PollIce}
		}
	case GpgIdle:
		if is != nil && is.Gpgnet.GameState == PhaseLobby {
			return GpgLobby, []Effect{StartGame}
		}
	}
	return s, nil
}

// GPGNet follows the game protocol phase of a client.
type GPGNet struct {
	c     *Client
	host  Player
	state GpgState

	status *ClientStatus
	ice    *IceStatus

	readyFired bool
	timer      loop.Timer
	onReady    func()

	env *env
	log *logger.Logger
}

func newGPGNet(c *Client, host Player, env *env) *GPGNet {
	return &GPGNet{
		c:    c,
		host: host,
		env:  env,
		log:  c.log.Extend(c.log.With().Str(logger.MachineField, "gpgnet")),
	}
}

func (g *GPGNet) State() GpgState { return g.state }

func (g *GPGNet) SetClientStatus(st ClientStatus) {
	if g.status != nil && g.status.Equal(st) {
		return
	}
	g.status = &st
	g.Trigger()
}

func (g *GPGNet) SetIceStatus(is IceStatus) {
	if g.ice != nil && g.ice.Equal(is) {
		return
	}
	g.ice = &is
	g.c.GpgnetPort = is.Gpgnet.LocalPort
	if is.IsHosting() {
		g.c.Hosting = true
	}
	g.Trigger()
}

// Trigger re-evaluates the guards against the latest snapshots.
func (g *GPGNet) Trigger() {
	if next, eff := gpgStep(g.state, g.status, g.ice); next != g.state {
		g.enter(next, eff)
	}
}

// PollIce requests a fresh adapter status.
func (g *GPGNet) PollIce() { g.c.IceStatus(g.SetIceStatus) }

func (g *GPGNet) enter(s GpgState, eff []Effect) {
	g.state = s
	transition("gpgnet", s.String())
	g.log.Info().Msgf("GPGNet state changed to %v", s)
	for _, e := range eff {
		g.apply(e)
	}
}

func (g *GPGNet) apply(e Effect) {
	switch e {
	case ConnectGpgnet:
		g.c.Call("connectToGPGNet", []any{g.c.GpgnetPort}, nil, nil)
	case SendIdle:
		g.c.Call("sendToGpgNet", []any{"GameState", []any{PhaseIdle}}, nil, nil)
		g.c.Phase = PhaseIdle
	case PollIce:
		g.PollIce()
	case PollIceLater:
		g.stopTimer()
		g.timer = g.env.sched.After(g.env.conf.Poll.GpgnetConnect, g.PollIce)
	case StartGame:
		if g.c.Host {
			g.c.IceCommand("hostGame", []any{g.env.conf.Game.Map}, nil, nil)
			g.c.Hosting = true
		} else {
			g.c.IceCommand("joinGame", []any{g.host.Login, g.host.Id}, nil, nil)
		}
	case FireReady:
		if g.readyFired {
			return
		}
		g.readyFired = true
		if g.onReady != nil {
			g.onReady()
		}
	}
}

// ProcessMessage handles a GPGNet message the adapter has sent to the game.
func (g *GPGNet) ProcessMessage(header string, chunks []json.RawMessage) {
	switch header {
	case MsgCreateLobby:
		if g.c.Phase != PhaseIdle {
			g.log.Debug().Msgf("%v in %v phase has been ignored", header, g.c.Phase)
			return
		}
		// initMode, port, login, playerId, natTraversalProvider
		if len(chunks) < 2 {
			g.log.Error().Msgf("malformed %v: %s", header, chunks)
			return
		}
		g.c.Call("bindGameLobbySocket", []any{chunks[1]}, nil, nil)
		g.c.Call("sendToGpgNet", []any{"GameState", []any{PhaseLobby}}, nil, nil)
		g.c.Phase = PhaseLobby
		g.PollIce()
	case MsgHostGame:
		if !g.c.Hosting {
			g.log.Error().Msg("received HostGame while not hosting")
			return
		}
		g.ready(GpgHosting)
	case MsgJoinGame, MsgConnectToPeer:
		g.track(header, chunks)
		if header != MsgJoinGame {
			return
		}
		if g.c.Host {
			g.log.Error().Msg("received JoinGame on the session host")
			return
		}
		g.ready(GpgJoining)
	default:
		g.log.Debug().Msgf("GPGNet message %v %s", header, chunks)
	}
}

func (g *GPGNet) ready(s GpgState) {
	if g.state != GpgLobby {
		g.log.Warn().Msgf("can't go %v from %v", s, g.state)
		return
	}
	g.enter(s, []Effect{FireReady})
}

// track makes the adapter ping a newly announced peer.
func (g *GPGNet) track(header string, chunks []json.RawMessage) {
	// relayAddress, remoteLogin, remoteId
	if len(chunks) < 3 {
		g.log.Error().Msgf("malformed %v: %s", header, chunks)
		return
	}
	var addr string
	var remote int
	if err := json.Unmarshal(chunks[0], &addr); err != nil {
		g.log.Error().Err(err).Msgf("bad %v relay address", header)
		return
	}
	if err := json.Unmarshal(chunks[2], &remote); err != nil {
		g.log.Error().Err(err).Msgf("bad %v remote id", header)
		return
	}
	if _, ok := g.c.pings[remote]; ok {
		return
	}
	g.c.IceCommand("pingTracker", []any{addr, remote}, nil, nil)
	g.c.pings[remote] = 0
	g.log.Info().Int(logger.RemoteField, remote).Msg("ping tracker created")
}

func (g *GPGNet) stopTimer() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *GPGNet) close() { g.stopTimer() }
