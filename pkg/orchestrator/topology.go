package orchestrator

import "slices"

// Topology is the full mesh of the ready clients.
// A client joins the mesh once, and at that moment it's paired
// in both directions with every client that was ready before.
type Topology struct {
	ready   []int
	pairs   map[Pair]*P2PConnection
	connect func(local, remote int) *P2PConnection
}

func NewTopology(connect func(local, remote int) *P2PConnection) *Topology {
	return &Topology{pairs: make(map[Pair]*P2PConnection), connect: connect}
}

// Ready adds the client to the mesh and returns the number of new connections.
func (t *Topology) Ready(id int) int {
	if t.IsReady(id) {
		return 0
	}
	n := 0
	for _, p := range t.ready {
		n += t.add(id, p) + t.add(p, id)
	}
	t.ready = append(t.ready, id)
	return n
}

func (t *Topology) add(local, remote int) int {
	k := Pair{Local: local, Remote: remote}
	if _, ok := t.pairs[k]; ok {
		return 0
	}
	conn := t.connect(local, remote)
	if conn == nil {
		return 0
	}
	t.pairs[k] = conn
	return 1
}

func (t *Topology) IsReady(id int) bool { return slices.Contains(t.ready, id) }

// Members returns the ready clients in the order they became ready.
func (t *Topology) Members() []int { return slices.Clone(t.ready) }

func (t *Topology) Get(local, remote int) (*P2PConnection, bool) {
	conn, ok := t.pairs[Pair{Local: local, Remote: remote}]
	return conn, ok
}

func (t *Topology) Len() int { return len(t.pairs) }

// Remove drops the client and all of its connections.
func (t *Topology) Remove(id int) {
	t.ready = slices.DeleteFunc(t.ready, func(v int) bool { return v == id })
	for k := range t.pairs {
		if k.Local == id || k.Remote == id {
			t.drop(k)
		}
	}
}

// Reconnect replaces both directions of a pair with new connections.
func (t *Topology) Reconnect(a, b int) int {
	t.drop(Pair{Local: a, Remote: b})
	t.drop(Pair{Local: b, Remote: a})
	if !t.IsReady(a) || !t.IsReady(b) {
		return 0
	}
	return t.add(a, b) + t.add(b, a)
}

func (t *Topology) drop(k Pair) {
	if _, ok := t.pairs[k]; !ok {
		return
	}
	delete(t.pairs, k)
	dropPing(k.Local, k.Remote)
}
