package orchestrator

import (
	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/logger"
)

type P2PState uint8

const (
	P2PInitial P2PState = iota
	P2PConnecting
	P2PConnected
	P2PPinging
)

var p2pStates = [...]string{"initial", "connecting", "connected", "pinging"}

func (s P2PState) String() string { return p2pStates[s] }

// Role is the side a directed connection plays in ICE negotiation.
type Role uint8

const (
	// Passive connections don't issue connectToPeer,
	// the host's connection in the opposite direction does it.
	Passive Role = iota
	Offerer
	Answerer
)

func (r Role) String() string {
	switch r {
	case Offerer:
		return "offerer"
	case Answerer:
		return "answerer"
	}
	return "passive"
}

// roleOf decides the role of the local side of a pair.
// The host always offers, between two joiners the lower id does.
func roleOf(local, remote, host int) Role {
	switch {
	case local == host:
		return Offerer
	case remote != host:
		if local < remote {
			return Offerer
		}
		return Answerer
	default:
		return Passive
	}
}

// Pair is a directed connection key.
type Pair struct{ Local, Remote int }

// P2PConnection is the local client's half of a peer connection.
type P2PConnection struct {
	local  *Client
	remote *Client
	role   Role
	state  P2PState

	connected bool
	log       *logger.Logger
}

// newP2PConnection creates a connection and sends the
// initial connectToPeer unless the role is passive.
func newP2PConnection(local, remote *Client, host int) *P2PConnection {
	p := &P2PConnection{
		local:  local,
		remote: remote,
		role:   roleOf(local.Id, remote.Id, host),
		log: local.log.Extend(local.log.With().
			Str(logger.MachineField, "p2p").
			Int(logger.LocalField, local.Id).
			Int(logger.RemoteField, remote.Id)),
	}
	p.log.Debug().Msgf("new connection as %v", p.role)
	if p.role != Passive {
		local.IceCommand("connectToPeer", []any{remote.Login, remote.Id, p.role == Offerer}, nil, nil)
		p.enter(P2PConnecting)
	}
	return p
}

func (p *P2PConnection) Key() Pair         { return Pair{Local: p.local.Id, Remote: p.remote.Id} }
func (p *P2PConnection) Role() Role        { return p.role }
func (p *P2PConnection) State() P2PState   { return p.state }
func (p *P2PConnection) IsConnected() bool { return p.connected }

func (p *P2PConnection) enter(s P2PState) {
	p.state = s
	transition("p2p", s.String())
	p.log.Info().Msgf("P2PConnection state changed to %v", s)
}

// OnIceMessage relays a signaling message of the remote peer
// to the adapter of the local one.
func (p *P2PConnection) OnIceMessage(msg json.RawMessage) {
	p.local.IceCommand("iceMsg", []any{p.remote.Id, msg}, nil, nil)
}

// OnConnected records the reachability reported by the local adapter.
// It returns true when an established connection is lost, such
// connections are to be recreated, never revived.
func (p *P2PConnection) OnConnected(connected bool) (lost bool) {
	was := p.connected
	p.connected = connected
	if connected {
		if p.state < P2PConnected {
			p.enter(P2PConnected)
		}
		return false
	}
	return was || p.state >= P2PConnected
}

// Pinged takes the latest ping measured by the local adapter.
func (p *P2PConnection) Pinged(ping float64) {
	setPing(p.local.Id, p.remote.Id, ping)
	if p.state == P2PConnected {
		p.enter(P2PPinging)
	}
}
