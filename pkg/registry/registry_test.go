package registry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/iceorch/iceorch/pkg/config"
	"github.com/iceorch/iceorch/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRegistry() *Registry { return &Registry{store: NewStore(), log: logger.Nop()} }

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code, w.Body.String()
}

func TestRoutes(t *testing.T) {
	h := newTestRegistry().Handler()

	tests := []struct {
		path string
		code int
		body string
	}{
		{path: "/get_games", code: http.StatusOK, body: `{}`},
		{path: "/create_game/1", code: http.StatusOK, body: `{"id":0}`},
		{path: "/create_game/1", code: http.StatusConflict},
		{path: "/create_game/7", code: http.StatusOK, body: `{"id":1}`},
		{path: "/create_game/abc", code: http.StatusBadRequest},
		{path: "/get_players/0", code: http.StatusOK, body: `{"1":{}}`},
		{path: "/get_players/5", code: http.StatusNotFound},
		{path: "/get_players/x", code: http.StatusBadRequest},
		{path: "/join_game/0/2", code: http.StatusOK, body: "OK"},
		{path: "/join_game/0/2", code: http.StatusConflict},
		{path: "/join_game/9/2", code: http.StatusNotFound},
		{path: "/join_game/0/bob", code: http.StatusBadRequest},
		{path: "/set_sdp/0/2/1/v=0", code: http.StatusOK, body: "OK"},
		{path: "/set_sdp/3/2/1/v=0", code: http.StatusNotFound},
		{path: "/set_sdp/0/2/one/v=0", code: http.StatusBadRequest},
		{path: "/get_players/0", code: http.StatusOK, body: `{"1":{},"2":{"1":"v=0"}}`},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			code, body := get(t, h, test.path)
			if code != test.code {
				t.Fatalf("expected %v, got %v (%v)", test.code, code, body)
			}
			if test.body != "" && body != test.body {
				t.Errorf("expected %v, got %v", test.body, body)
			}
		})
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	h := newTestRegistry().Handler()

	_, body := get(t, h, "/create_game/11")
	var created struct{ Id int }
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatalf("bad create_game answer %v: %v", body, err)
	}

	players := func() Game {
		code, body := get(t, h, "/get_players/0")
		if code != http.StatusOK {
			t.Fatalf("get_players: %v", code)
		}
		var g Game
		if err := json.Unmarshal([]byte(body), &g); err != nil {
			t.Fatalf("bad get_players answer %v: %v", body, err)
		}
		return g
	}

	g := players()
	if len(g) != 1 || len(g[11]) != 0 {
		t.Fatalf("expected only the host, got %v", g)
	}

	if code, _ := get(t, h, "/set_sdp/0/11/12/offer"); code != http.StatusOK {
		t.Fatalf("set_sdp: %v", code)
	}
	if code, _ := get(t, h, "/set_sdp/0/12/11/answer"); code != http.StatusOK {
		t.Fatalf("set_sdp: %v", code)
	}
	g = players()
	if g[11][12] != "offer" || g[12][11] != "answer" {
		t.Errorf("sdp stored under wrong keys: %v", g)
	}

	code, body := get(t, h, "/get_games")
	var games map[int]Game
	if err := json.Unmarshal([]byte(body), &games); err != nil || code != http.StatusOK {
		t.Fatalf("get_games: %v %v", code, err)
	}
	if games[0][12][11] != "answer" {
		t.Errorf("get_games mismatch: %v", games)
	}
}

func TestSdpWithSlashes(t *testing.T) {
	h := newTestRegistry().Handler()
	get(t, h, "/create_game/1")
	if code, _ := get(t, h, "/set_sdp/0/1/2/a/b+c="); code != http.StatusOK {
		t.Fatalf("set_sdp: %v", code)
	}
	if _, body := get(t, h, "/get_players/0"); body != `{"1":{"2":"a/b+c="}}` {
		t.Errorf("unexpected players %v", body)
	}
}

func TestRequestMetrics(t *testing.T) {
	h := newTestRegistry().Handler()
	before := testutil.ToFloat64(requests.WithLabelValues("get_players", "404"))
	get(t, h, "/get_players/42")
	if after := testutil.ToFloat64(requests.WithLabelValues("get_players", "404")); after != before+1 {
		t.Errorf("expected the counter to grow by one, got %v -> %v", before, after)
	}
}

func TestRequestId(t *testing.T) {
	h := newTestRegistry().Handler()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get_games", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Errorf("no request id")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestRegistry().Handler()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/create_game/1", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %v", w.Code)
	}
}

func TestRegistryServer(t *testing.T) {
	conf := config.Registry{}
	conf.Server.Address = "127.0.0.1:0"
	reg, err := New(conf, logger.Nop())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	reg.Run()
	defer func() { _ = reg.Shutdown(context.Background()) }()

	resp, err := http.Get("http://" + reg.server.Listener().Addr().String() + "/create_game/3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"id":0}` {
		t.Errorf("unexpected answer %s", body)
	}
}

func TestStoreCopies(t *testing.T) {
	s := NewStore()
	id, _ := s.Create(1)
	g, _ := s.Players(id)
	g[1][2] = "mutated"
	if g2, _ := s.Players(id); len(g2[1]) != 0 {
		t.Errorf("store leaked its internal map")
	}
}
