package orchestrator

import (
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// Game phases reported by the GPGNet bridge.
const (
	PhaseNone  = "None"
	PhaseIdle  = "Idle"
	PhaseLobby = "Lobby"
)

type PingTracker struct {
	RemoteId int     `json:"remote_id"`
	Ping     float64 `json:"ping"`
}

// ClientStatus is a reply of the status command of a game client.
type ClientStatus struct {
	Id               int           `json:"id"`
	Login            string        `json:"login"`
	AdapterOpen      bool          `json:"ice_adapter_open"`
	AdapterPort      int           `json:"ice_adapter_port"`
	AdapterConnected bool          `json:"ice_adapter_connected"`
	GpgnetConnected  bool          `json:"gpgnet_connected"`
	PingTrackers     []PingTracker `json:"ping_trackers"`
}

func (s ClientStatus) Equal(o ClientStatus) bool {
	return s.Id == o.Id &&
		s.Login == o.Login &&
		s.AdapterOpen == o.AdapterOpen &&
		s.AdapterPort == o.AdapterPort &&
		s.AdapterConnected == o.AdapterConnected &&
		s.GpgnetConnected == o.GpgnetConnected &&
		slices.Equal(s.PingTrackers, o.PingTrackers)
}

type GpgnetStatus struct {
	LocalPort  int    `json:"local_port"`
	Connected  bool   `json:"connected"`
	GameState  string `json:"game_state"`
	TaskString string `json:"task_string"`
}

type RelayStatus struct {
	RemotePlayerId    int    `json:"remote_player_id"`
	RemotePlayerLogin string `json:"remote_player_login"`
	LocalGameUdpPort  int    `json:"local_game_udp_port"`
	IceAgent          struct {
		State     string `json:"state"`
		Connected bool   `json:"connected"`
	} `json:"ice_agent"`
}

// IceStatus is a reply of the ICE adapter status command.
type IceStatus struct {
	IceServersSize int           `json:"ice_servers_size"`
	LobbyPort      int           `json:"lobby_port"`
	InitMode       string        `json:"init_mode"`
	Gpgnet         GpgnetStatus  `json:"gpgnet"`
	Relays         []RelayStatus `json:"relays"`
}

func (s IceStatus) Equal(o IceStatus) bool {
	return s.IceServersSize == o.IceServersSize &&
		s.LobbyPort == o.LobbyPort &&
		s.InitMode == o.InitMode &&
		s.Gpgnet == o.Gpgnet &&
		slices.Equal(s.Relays, o.Relays)
}

func (s IceStatus) IsHosting() bool { return strings.Contains(s.Gpgnet.TaskString, "Hosting") }
func (s IceStatus) IsJoining() bool { return strings.Contains(s.Gpgnet.TaskString, "Joining") }

// Player is a roster entry of the master.
type Player struct {
	Id    int    `json:"id"`
	Login string `json:"login"`
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
