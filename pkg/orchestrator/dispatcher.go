package orchestrator

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Master events.
const (
	EventGpgNetMessage  = "onGpgNetMsgFromIceAdapter"
	EventAdapterOutput  = "onIceAdapterOutput"
	EventIceConnected   = "onIceOnConnected"
	EventIceMessage     = "onIceOnIceMsg"
	EventGpgNetReceived = "onIceOnGpgNetMessageReceived"
)

var ErrBadPayload = errors.New("bad event payload")

// Dispatch routes a master event of a client to its handler.
// Events of unknown clients or pairs are dropped, they
// may race with the client leaving.
func (s *Session) Dispatch(event string, clientId int, args []json.RawMessage) {
	m, ok := s.members[clientId]
	if !ok {
		s.unhandled(event, clientId, "unknown client")
		return
	}
	log := m.client.log

	switch event {
	case EventGpgNetMessage:
		args = unwrap(args)
		var header string
		var chunks []json.RawMessage
		if len(args) < 2 || json.Unmarshal(args[0], &header) != nil || json.Unmarshal(args[1], &chunks) != nil {
			log.Error().Msgf("%v: %v %s", event, ErrBadPayload, args)
			return
		}
		m.gpg.ProcessMessage(header, chunks)
	case EventAdapterOutput:
		log.Debug().Msgf("adapter output: %s", args)
	case EventIceConnected:
		src, dest, connected, err := iceConnectedArgs(args)
		if err != nil {
			log.Error().Err(err).Msg(event)
			return
		}
		// payload is (srcId, destId, connected) as reported by the adapter of src,
		// so the pair is keyed with src as the local side
		conn, ok := s.topology.Get(src, dest)
		if !ok {
			s.unhandled(event, clientId, fmt.Sprintf("no connection %v -> %v", src, dest))
			return
		}
		if conn.OnConnected(connected) {
			n := s.topology.Reconnect(src, dest)
			p2pConnections.Set(float64(s.topology.Len()))
			log.Warn().Msgf("Connection %v -> %v is lost, recreated %v", src, dest, n)
		}
	case EventIceMessage:
		src, dest, msg, err := iceMsgArgs(args)
		if err != nil {
			log.Error().Err(err).Msg(event)
			return
		}
		// payload is (srcId, destId, msg): the message goes to the dest side
		conn, ok := s.topology.Get(dest, src)
		if !ok {
			s.unhandled(event, clientId, fmt.Sprintf("no connection %v -> %v", dest, src))
			return
		}
		conn.OnIceMessage(msg)
	case EventGpgNetReceived:
		log.Debug().Msgf("%v: %s", event, args)
	default:
		s.unhandled(event, clientId, "unknown event")
	}
}

func (s *Session) unhandled(event string, clientId int, reason string) {
	unhandledEvents.WithLabelValues(event).Inc()
	s.log.Warn().Msgf("unhandled master event %v of %v: %v", event, clientId, reason)
}

// unwrap opens a payload packed into a single array.
func unwrap(args []json.RawMessage) []json.RawMessage {
	if len(args) != 1 {
		return args
	}
	var inner []json.RawMessage
	if err := json.Unmarshal(args[0], &inner); err != nil {
		return args
	}
	return inner
}

// pairArgs reads the (srcId, destId, x) payload of ICE events.
func pairArgs(args []json.RawMessage) (src, dest int, x json.RawMessage, err error) {
	args = unwrap(args)
	if len(args) < 3 {
		return 0, 0, nil, fmt.Errorf("%w: %s", ErrBadPayload, args)
	}
	if err = json.Unmarshal(args[0], &src); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: src id: %v", ErrBadPayload, err)
	}
	if err = json.Unmarshal(args[1], &dest); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: dest id: %v", ErrBadPayload, err)
	}
	return src, dest, args[2], nil
}

func iceConnectedArgs(args []json.RawMessage) (src, dest int, connected bool, err error) {
	src, dest, x, err := pairArgs(args)
	if err != nil {
		return
	}
	if err = json.Unmarshal(x, &connected); err != nil {
		err = fmt.Errorf("%w: connected: %v", ErrBadPayload, err)
	}
	return
}

func iceMsgArgs(args []json.RawMessage) (src, dest int, msg json.RawMessage, err error) {
	return pairArgs(args)
}
