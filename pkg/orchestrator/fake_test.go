package orchestrator

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/config"
	"github.com/iceorch/iceorch/pkg/ice"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/loop"
)

// command is a recorded sendToPlayer call.
type command struct {
	to       int
	method   string
	args     []any
	onResult ResultFn
	onError  ErrorFn
	answered bool
}

// name returns the method or ice.<sub-command> for the adapter commands.
func (c *command) name() string {
	if c.method == "sendToIceAdapter" {
		return "ice." + c.args[0].(string)
	}
	return c.method
}

// params returns the args of an adapter sub-command.
func (c *command) params() []any {
	if c.method == "sendToIceAdapter" {
		return c.args[1].([]any)
	}
	return c.args
}

func (c *command) reply(v any) {
	c.answered = true
	if c.onResult == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.onResult(raw)
}

func (c *command) fail(err error) {
	c.answered = true
	c.onError(err)
}

// fakeRelay records client commands and lets tests answer them later.
type fakeRelay struct {
	sent []*command
}

func (r *fakeRelay) SendToPlayer(id int, method string, args []any, onResult ResultFn, onError ErrorFn) {
	r.sent = append(r.sent, &command{to: id, method: method, args: args, onResult: onResult, onError: onError})
}

func (r *fakeRelay) find(id int, name string) (out []*command) {
	for _, c := range r.sent {
		if c.to == id && c.name() == name {
			out = append(out, c)
		}
	}
	return
}

func (r *fakeRelay) count(id int, name string) int { return len(r.find(id, name)) }

// replyAll answers every unanswered command known at the moment of the call.
func (r *fakeRelay) replyAll(id int, name string, v any) int {
	n := 0
	for _, c := range r.find(id, name) {
		if !c.answered {
			c.reply(v)
			n++
		}
	}
	return n
}

func (r *fakeRelay) failAll(id int, name string, err error) {
	for _, c := range r.find(id, name) {
		if !c.answered {
			c.fail(err)
		}
	}
}

func (r *fakeRelay) since(n int) []*command { return r.sent[n:] }

var (
	host   = Player{Id: 1, Login: "host"}
	joiner = Player{Id: 2, Login: "joiner"}
)

func testConfig() config.Orchestrator {
	var conf config.Orchestrator
	conf.Game.Map = "testmap"
	conf.Game.LobbyInitMode = "normal"
	conf.Poll.Status = 2 * time.Second
	conf.Poll.AdapterConnect = 300 * time.Millisecond
	conf.Poll.GpgnetConnect = 500 * time.Millisecond
	conf.Turn.Host = "turn.example.com"
	conf.Turn.Ttl = ice.DefaultTTL
	return conf
}

type fixture struct {
	t     *testing.T
	s     *Session
	relay *fakeRelay
	clock *loop.Manual
}

func newFixture(t *testing.T, log *logger.Logger) *fixture {
	if log == nil {
		log = logger.Nop()
	}
	clock := loop.NewManual()
	relay := &fakeRelay{}
	e := &env{sched: clock, conf: testConfig(), secret: ice.StaticSecret("banana")}
	return &fixture{t: t, s: NewSession(host, relay, e, log), relay: relay, clock: clock}
}

func raws(values ...any) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		out[i] = b
	}
	return out
}

func connectedStatus(p Player, gpgnet bool) ClientStatus {
	return ClientStatus{Id: p.Id, Login: p.Login, AdapterOpen: true, AdapterConnected: true, GpgnetConnected: gpgnet}
}

func gpgnetStatus(connected bool, phase string) IceStatus {
	return IceStatus{IceServersSize: 1, Gpgnet: GpgnetStatus{LocalPort: 7237, Connected: connected, GameState: phase}}
}

func (f *fixture) member(id int) *member {
	f.t.Helper()
	m, ok := f.s.members[id]
	if !ok {
		f.t.Fatalf("no client %v", id)
	}
	return m
}

// lobby walks a new client up to the lobby state.
func (f *fixture) lobby(p Player) {
	f.t.Helper()
	r := f.relay
	f.s.Add(p)
	m := f.member(p.Id)

	r.replyAll(p.Id, "status", connectedStatus(p, false))
	if m.ice.State() != IceNoServers {
		f.t.Fatalf("ice state %v, want %v", m.ice.State(), IceNoServers)
	}
	r.replyAll(p.Id, "ice.setIceServers", true)
	if m.ice.State() != IceReady {
		f.t.Fatalf("ice state %v, want %v", m.ice.State(), IceReady)
	}

	r.replyAll(p.Id, "ice.status", gpgnetStatus(false, PhaseNone))
	if m.gpg.State() != GpgNotConnected {
		f.t.Fatalf("gpgnet state %v, want %v", m.gpg.State(), GpgNotConnected)
	}
	f.clock.Advance(500 * time.Millisecond)
	r.replyAll(p.Id, "ice.status", gpgnetStatus(true, PhaseNone))
	if m.gpg.State() != GpgNone {
		f.t.Fatalf("gpgnet state %v, want %v", m.gpg.State(), GpgNone)
	}
	r.replyAll(p.Id, "ice.status", gpgnetStatus(true, PhaseIdle))
	if m.gpg.State() != GpgIdle {
		f.t.Fatalf("gpgnet state %v, want %v", m.gpg.State(), GpgIdle)
	}
	f.s.Dispatch(EventGpgNetMessage, p.Id, raws(MsgCreateLobby, []any{"normal", 6112, p.Login, p.Id, 1}))
	r.replyAll(p.Id, "ice.status", gpgnetStatus(true, PhaseLobby))
	if m.gpg.State() != GpgLobby {
		f.t.Fatalf("gpgnet state %v, want %v", m.gpg.State(), GpgLobby)
	}
}

func (f *fixture) host() {
	f.t.Helper()
	f.s.Dispatch(EventGpgNetMessage, host.Id, raws(MsgHostGame, []any{"testmap"}))
	if st := f.member(host.Id).gpg.State(); st != GpgHosting {
		f.t.Fatalf("host state %v, want %v", st, GpgHosting)
	}
}

func (f *fixture) join(p Player) {
	f.t.Helper()
	f.s.Dispatch(EventGpgNetMessage, p.Id, raws(MsgJoinGame, []any{"127.0.0.1:6000", host.Login, host.Id}))
	if st := f.member(p.Id).gpg.State(); st != GpgJoining {
		f.t.Fatalf("%v state %v, want %v", p.Login, st, GpgJoining)
	}
}
