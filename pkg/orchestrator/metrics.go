package orchestrator

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "iceorch"

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Commands sent to game clients.",
	}, []string{"method"})
	commandErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "command_errors_total",
		Help:      "Failed commands sent to game clients.",
	}, []string{"method"})
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "State machine transitions by target state.",
	}, []string{"machine", "state"})
	p2pConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "p2p_connections",
		Help:      "Directed peer connections of the current session.",
	})
	clientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "clients",
		Help:      "Game clients of the current session.",
	})
	readyClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ready_clients",
		Help:      "Game clients that are hosting or joining.",
	})
	peerPing = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "peer_ping_ms",
		Help:      "Latest ping reported between two peers.",
	}, []string{"local", "remote"})
	unhandledEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unhandled_events_total",
		Help:      "Master events without a receiver.",
	}, []string{"event"})
)

func transition(machine, state string) { transitionsTotal.WithLabelValues(machine, state).Inc() }

func setPing(local, remote int, ping float64) {
	peerPing.WithLabelValues(strconv.Itoa(local), strconv.Itoa(remote)).Set(ping)
}

func dropPing(local, remote int) {
	peerPing.DeleteLabelValues(strconv.Itoa(local), strconv.Itoa(remote))
}
