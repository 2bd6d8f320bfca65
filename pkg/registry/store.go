package registry

import (
	"errors"
	"sync"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Game holds the SDP blobs of a game keyed by player and then by remote player.
type Game map[int]map[int]string

func (g Game) copy() Game {
	c := make(Game, len(g))
	for player, sdps := range g {
		m := make(map[int]string, len(sdps))
		for remote, sdp := range sdps {
			m[remote] = sdp
		}
		c[player] = m
	}
	return c
}

// Store is an in-memory list of games.
// Game ids are allocated in increasing order starting from 0.
type Store struct {
	mu    sync.Mutex
	next  int
	games map[int]Game
	hosts map[int]int
}

func NewStore() *Store { return &Store{games: map[int]Game{}, hosts: map[int]int{}} }

// Create makes a new game with the host as its only player.
func (s *Store) Create(host int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hosts[host]; ok {
		return 0, ErrConflict
	}
	id := s.next
	s.next++
	s.games[id] = Game{host: {}}
	s.hosts[host] = id
	return id, nil
}

func (s *Store) Join(game, player int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[game]
	if !ok {
		return ErrNotFound
	}
	if _, ok := g[player]; ok {
		return ErrConflict
	}
	g[player] = map[int]string{}
	return nil
}

// SetSdp stores the SDP of the player for the remote player.
// Unknown players of an existing game are added on the fly.
func (s *Store) SetSdp(game, player, remote int, sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[game]
	if !ok {
		return ErrNotFound
	}
	if g[player] == nil {
		g[player] = map[int]string{}
	}
	g[player][remote] = sdp
	return nil
}

func (s *Store) Players(game int) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[game]
	if !ok {
		return nil, ErrNotFound
	}
	return g.copy(), nil
}

func (s *Store) Games() map[int]Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	games := make(map[int]Game, len(s.games))
	for id, g := range s.games {
		games[id] = g.copy()
	}
	return games
}
