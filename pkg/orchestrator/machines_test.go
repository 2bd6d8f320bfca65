package orchestrator

import (
	"slices"
	"testing"
)

func TestIceStep(t *testing.T) {
	closed := ClientStatus{}
	open := ClientStatus{AdapterOpen: true}
	connected := ClientStatus{AdapterOpen: true, AdapterConnected: true}

	tests := []struct {
		from    IceState
		status  ClientStatus
		to      IceState
		effects []Effect
	}{
		{from: IceInitial, status: closed, to: IceNotRunning, effects: []Effect{StartAdapter, PollStatus}},
		{from: IceInitial, status: open, to: IceNotConnected, effects: []Effect{ConnectAdapter, PollStatusLater}},
		{from: IceInitial, status: connected, to: IceNoServers, effects: []Effect{PushServers}},
		{from: IceNotRunning, status: closed, to: IceNotRunning},
		{from: IceNotRunning, status: open, to: IceNotConnected, effects: []Effect{ConnectAdapter, PollStatusLater}},
		{from: IceNotConnected, status: open, to: IceNotConnected},
		{from: IceNotConnected, status: connected, to: IceNoServers, effects: []Effect{PushServers}},
		{from: IceNoServers, status: connected, to: IceNoServers},
		{from: IceReady, status: closed, to: IceReady},
	}

	for _, test := range tests {
		t.Run(test.from.String()+"->"+test.to.String(), func(t *testing.T) {
			to, eff := iceStep(test.from, test.status)
			if to != test.to {
				t.Errorf("got %v, want %v", to, test.to)
			}
			if !slices.Equal(eff, test.effects) {
				t.Errorf("got effects %v, want %v", eff, test.effects)
			}
		})
	}
}

func TestGpgStep(t *testing.T) {
	adapterDown := &ClientStatus{AdapterOpen: true}
	gameDown := &ClientStatus{AdapterOpen: true, AdapterConnected: true}
	gameUp := &ClientStatus{AdapterOpen: true, AdapterConnected: true, GpgnetConnected: true}
	ice := func(connected bool, phase string) *IceStatus {
		return &IceStatus{Gpgnet: GpgnetStatus{Connected: connected, GameState: phase}}
	}

	tests := []struct {
		name    string
		from    GpgState
		status  *ClientStatus
		ice     *IceStatus
		to      GpgState
		effects []Effect
	}{
		{name: "nothing known", from: GpgNoState, to: GpgNoState},
		{name: "no ice status", from: GpgNoState, status: gameDown, to: GpgNoState},
		{name: "adapter not connected", from: GpgNoState, status: adapterDown, ice: ice(false, PhaseNone), to: GpgNoState},
		{name: "game not connected", from: GpgNoState, status: gameDown, ice: ice(false, PhaseNone),
			to: GpgNotConnected, effects: []Effect{ConnectGpgnet, PollIceLater}},
		{name: "game connected", from: GpgNoState, status: gameUp, ice: ice(true, PhaseNone),
			to: GpgNone, effects: []Effect{SendIdle, PollIce}},
		{name: "game connected but adapter disagrees", from: GpgNoState, status: gameUp, ice: ice(false, PhaseNone), to: GpgNoState},
		{name: "connects", from: GpgNotConnected, status: gameDown, ice: ice(true, PhaseNone),
			to: GpgNone, effects: []Effect{SendIdle, PollIce}},
		{name: "still connecting", from: GpgNotConnected, status: gameDown, ice: ice(false, PhaseNone), to: GpgNotConnected},
		{name: "idle", from: GpgNone, status: gameUp, ice: ice(true, PhaseIdle), to: GpgIdle, effects: []Effect{PollIce}},
		{name: "lobby skips idle", from: GpgNone, status: gameUp, ice: ice(true, PhaseLobby), to: GpgNone},
		{name: "lobby", from: GpgIdle, status: gameUp, ice: ice(true, PhaseLobby), to: GpgLobby, effects: []Effect{StartGame}},
		{name: "lobby stays", from: GpgLobby, status: gameUp, ice: ice(true, PhaseLobby), to: GpgLobby},
		{name: "hosting stays", from: GpgHosting, status: gameUp, ice: ice(true, PhaseIdle), to: GpgHosting},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			to, eff := gpgStep(test.from, test.status, test.ice)
			if to != test.to {
				t.Errorf("got %v, want %v", to, test.to)
			}
			if !slices.Equal(eff, test.effects) {
				t.Errorf("got effects %v, want %v", eff, test.effects)
			}
		})
	}
}

func TestRoleOf(t *testing.T) {
	tests := []struct {
		local, remote, host int
		role                Role
	}{
		{local: 1, remote: 2, host: 1, role: Offerer},
		{local: 3, remote: 2, host: 3, role: Offerer},
		{local: 2, remote: 1, host: 1, role: Passive},
		{local: 2, remote: 3, host: 1, role: Offerer},
		{local: 3, remote: 2, host: 1, role: Answerer},
		{local: 10, remote: 9, host: 1, role: Answerer},
	}
	for _, test := range tests {
		if role := roleOf(test.local, test.remote, test.host); role != test.role {
			t.Errorf("roleOf(%v, %v, host %v) = %v, want %v", test.local, test.remote, test.host, role, test.role)
		}
	}
}

func TestStatusEqual(t *testing.T) {
	a := ClientStatus{Id: 1, AdapterOpen: true, PingTrackers: []PingTracker{{RemoteId: 2, Ping: 10}}}
	b := a
	b.PingTrackers = []PingTracker{{RemoteId: 2, Ping: 10}}
	if !a.Equal(b) {
		t.Error("same snapshots should be equal")
	}
	b.PingTrackers[0].Ping = 11
	if a.Equal(b) {
		t.Error("ping change should be a change")
	}

	x := IceStatus{Gpgnet: GpgnetStatus{LocalPort: 1, TaskString: "Hosting game"}}
	y := x
	if !x.Equal(y) || !x.IsHosting() || x.IsJoining() {
		t.Error("unexpected ice status comparison")
	}
	y.Gpgnet.GameState = PhaseLobby
	if x.Equal(y) {
		t.Error("phase change should be a change")
	}
}
