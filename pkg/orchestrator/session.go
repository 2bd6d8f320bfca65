package orchestrator

import (
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/loop"
	"github.com/iceorch/iceorch/pkg/network"
)

// member is a client with its machines.
type member struct {
	client *Client
	ice    *IceAdapter
	gpg    *GPGNet
	poll   *loop.Repeat
}

// Session owns all the clients of one game.
// It must be used only on the reactor.
type Session struct {
	Id   network.Uid
	host Player

	members  map[int]*member
	topology *Topology

	relay Relay
	env   *env
	log   *logger.Logger
}

// NewSession starts a session where the given player is the host.
func NewSession(host Player, relay Relay, env *env, log *logger.Logger) *Session {
	id := network.NewUid()
	s := &Session{
		Id:      id,
		host:    host,
		members: make(map[int]*member),
		relay:   relay,
		env:     env,
		log:     log.Extend(log.With().Str(logger.SessionField, id.Short())),
	}
	s.topology = NewTopology(s.connect)
	s.log.Info().Msgf("New session, host: %v (%v)", host.Login, host.Id)
	return s
}

func (s *Session) Host() Player        { return s.host }
func (s *Session) Topology() *Topology { return s.topology }
func (s *Session) Len() int            { return len(s.members) }

func (s *Session) Client(id int) (*Client, bool) {
	m, ok := s.members[id]
	if !ok {
		return nil, false
	}
	return m.client, true
}

// Sync makes the session clients match the roster of the master.
// It returns false if the host has left, and the session is no more.
func (s *Session) Sync(roster []Player) bool {
	present := make(map[int]struct{}, len(roster))
	for _, p := range roster {
		present[p.Id] = struct{}{}
	}
	if _, ok := present[s.host.Id]; !ok {
		s.log.Info().Msgf("Host %v has left", s.host.Login)
		return false
	}
	for id := range s.members {
		if _, ok := present[id]; !ok {
			s.Remove(id)
		}
	}
	for _, p := range roster {
		if _, ok := s.members[p.Id]; !ok {
			s.Add(p)
		}
	}
	return true
}

// Add starts driving a new client.
func (s *Session) Add(p Player) {
	if _, ok := s.members[p.Id]; ok {
		return
	}
	c := NewClient(p, p.Id == s.host.Id, s.relay, s.log)
	m := &member{client: c}
	poll := func() { s.pollStatus(m) }
	m.ice = newIceAdapter(c, s.env, poll)
	m.gpg = newGPGNet(c, s.host, s.env)
	m.ice.onConnected = poll
	m.ice.onReady = m.gpg.Trigger
	m.gpg.onReady = func() { s.ready(c) }
	s.members[p.Id] = m
	clientsGauge.Inc()
	c.log.Info().Msg("Client has joined")

	poll()
	m.poll = loop.Every(s.env.sched, s.env.conf.Poll.Status, poll)
}

// Remove stops driving the client and drops its connections.
// Late results of its commands are ignored.
func (s *Session) Remove(id int) {
	m, ok := s.members[id]
	if !ok {
		return
	}
	m.poll.Stop()
	m.ice.close()
	m.gpg.close()
	m.client.gone = true
	wasReady := s.topology.IsReady(id)
	s.topology.Remove(id)
	delete(s.members, id)

	clientsGauge.Dec()
	if wasReady {
		readyClients.Dec()
	}
	p2pConnections.Set(float64(s.topology.Len()))
	m.client.log.Info().Msg("Client has left")
}

// Close removes every client.
func (s *Session) Close() {
	for id := range s.members {
		s.Remove(id)
	}
	s.log.Info().Msg("Session is over")
}

func (s *Session) pollStatus(m *member) {
	m.client.Status(func(st ClientStatus) {
		s.pings(m.client, st.PingTrackers)
		m.ice.SetStatus(st)
		m.gpg.SetClientStatus(st)
		if st.AdapterConnected {
			m.gpg.PollIce()
		}
	})
}

func (s *Session) pings(c *Client, trackers []PingTracker) {
	for _, t := range trackers {
		c.pings[t.RemoteId] = t.Ping
		if conn, ok := s.topology.Get(c.Id, t.RemoteId); ok {
			conn.Pinged(t.Ping)
		}
	}
}

func (s *Session) ready(c *Client) {
	if s.topology.IsReady(c.Id) {
		return
	}
	n := s.topology.Ready(c.Id)
	readyClients.Inc()
	p2pConnections.Set(float64(s.topology.Len()))
	c.log.Info().Msgf("Client is ready, %v new connections, mesh: %v", n, s.topology.Members())
}

func (s *Session) connect(local, remote int) *P2PConnection {
	l, ok1 := s.members[local]
	r, ok2 := s.members[remote]
	if !ok1 || !ok2 {
		return nil
	}
	return newP2PConnection(l.client, r.client, s.host.Id)
}
