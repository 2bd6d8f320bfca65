package orchestrator

import (
	"github.com/iceorch/iceorch/pkg/config"
	"github.com/iceorch/iceorch/pkg/ice"
	"github.com/iceorch/iceorch/pkg/loop"
)

// Effect is a side effect of entering a state.
// Transition functions return them, machines execute them.
type Effect uint8

const (
	StartAdapter Effect = iota + 1
	ConnectAdapter
	PollStatus
	PollStatusLater
	PushServers
	ConnectGpgnet
	SendIdle
	PollIce
	PollIceLater
	StartGame
	FireReady
)

var effects = [...]string{
	"", "startAdapter", "connectAdapter", "pollStatus", "pollStatusLater", "pushServers",
	"connectGpgnet", "sendIdle", "pollIce", "pollIceLater", "startGame", "fireReady",
}

func (e Effect) String() string {
	if int(e) < len(effects) {
		return effects[e]
	}
	return "?"
}

// env is what the machines of one session share.
type env struct {
	sched  loop.Scheduler
	conf   config.Orchestrator
	secret ice.Secret
}
