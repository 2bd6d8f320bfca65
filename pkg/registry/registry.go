// Package registry is a tiny HTTP directory of the running games
// where players exchange their session descriptions.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/config"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/iceorch/iceorch/pkg/network"
	"github.com/iceorch/iceorch/pkg/network/httpx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var errBadId = errors.New("bad id")

var requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "iceorch",
	Subsystem: "registry",
	Name:      "requests_total",
	Help:      "Registry HTTP requests by route and status code.",
}, []string{"route", "code"})

type Registry struct {
	conf   config.Registry
	store  *Store
	server *httpx.Server
	log    *logger.Logger
}

type handler func(r *http.Request) (any, error)

func New(conf config.Registry, log *logger.Logger) (*Registry, error) {
	reg := &Registry{conf: conf, store: NewStore(), log: log}
	server, err := httpx.NewServer(
		conf.Server.Address,
		func(*httpx.Server) httpx.Handler { return reg.Handler() },
		httpx.WithServerConfig(conf.Server),
		httpx.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("registry server: %w", err)
	}
	reg.server = server
	return reg, nil
}

// Handler returns the HTTP routes of the registry.
func (r *Registry) Handler() http.Handler {
	mux := httpx.NewServeMux("")
	mux.HandleFunc("GET /get_games", r.route("get_games", r.games))
	mux.HandleFunc("GET /create_game/{hostId}", r.route("create_game", r.create))
	mux.HandleFunc("GET /get_players/{gameId}", r.route("get_players", r.players))
	mux.HandleFunc("GET /join_game/{gameId}/{playerId}", r.route("join_game", r.join))
	mux.HandleFunc("GET /set_sdp/{gameId}/{playerId}/{remotePlayerId}/{sdp...}", r.route("set_sdp", r.setSdp))
	return mux
}

func (r *Registry) Run() {
	r.log.Info().Msgf("Starting registry server at %v", r.server.Addr)
	r.server.Run()
}

func (r *Registry) Shutdown(ctx context.Context) error { return r.server.Shutdown(ctx) }

func (r *Registry) String() string { return fmt.Sprintf("registry::%v", r.server.Addr) }

func (r *Registry) games(*http.Request) (any, error) { return r.store.Games(), nil }

func (r *Registry) create(req *http.Request) (any, error) {
	host, err := pathId(req, "hostId")
	if err != nil {
		return nil, err
	}
	id, err := r.store.Create(host)
	if err != nil {
		return nil, err
	}
	r.log.Info().Int("game", id).Int("host", host).Msg("New game")
	return map[string]int{"id": id}, nil
}

func (r *Registry) players(req *http.Request) (any, error) {
	game, err := pathId(req, "gameId")
	if err != nil {
		return nil, err
	}
	return r.store.Players(game)
}

func (r *Registry) join(req *http.Request) (any, error) {
	ids, err := pathIds(req, "gameId", "playerId")
	if err != nil {
		return nil, err
	}
	if err = r.store.Join(ids[0], ids[1]); err != nil {
		return nil, err
	}
	return "OK", nil
}

func (r *Registry) setSdp(req *http.Request) (any, error) {
	ids, err := pathIds(req, "gameId", "playerId", "remotePlayerId")
	if err != nil {
		return nil, err
	}
	if err = r.store.SetSdp(ids[0], ids[1], ids[2], req.PathValue("sdp")); err != nil {
		return nil, err
	}
	return "OK", nil
}

// route wraps a handler with the error mapping, metrics and request ids.
func (r *Registry) route(name string, h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rid := network.NewUid()
		w.Header().Set("X-Request-Id", rid.String())

		code := http.StatusOK
		res, err := h(req)
		switch {
		case errors.Is(err, errBadId):
			code = http.StatusBadRequest
		case errors.Is(err, ErrNotFound):
			code = http.StatusNotFound
		case errors.Is(err, ErrConflict):
			code = http.StatusConflict
		case err != nil:
			code = http.StatusInternalServerError
		}
		defer func() {
			requests.WithLabelValues(name, strconv.Itoa(code)).Inc()
			r.log.Debug().Str("rid", rid.Short()).Str("route", name).Int("code", code).Msg(req.URL.Path)
		}()

		if err != nil {
			http.Error(w, "ERROR", code)
			return
		}
		if s, ok := res.(string); ok {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(s))
			return
		}
		b, err := json.Marshal(res)
		if err != nil {
			code = http.StatusInternalServerError
			r.log.Error().Err(err).Str("route", name).Msg("encode")
			http.Error(w, "ERROR", code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}
}

func pathId(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %v %q", errBadId, name, r.PathValue(name))
	}
	return id, nil
}

func pathIds(r *http.Request, names ...string) ([]int, error) {
	ids := make([]int, len(names))
	for i, name := range names {
		id, err := pathId(r, name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
