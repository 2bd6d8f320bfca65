package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iceorch/iceorch/pkg/logger"
)

func TestMuxPrefix(t *testing.T) {
	mux := NewServeMux("/api")
	mux.HandleFunc("GET /hello/{name}", func(w ResponseWriter, r *Request) {
		_, _ = io.WriteString(w, "hi "+r.PathValue("name"))
	})
	mux.HandleFunc("/plain", func(w ResponseWriter, _ *Request) { _, _ = io.WriteString(w, "plain") })

	tests := []struct {
		method string
		path   string
		code   int
		body   string
	}{
		{method: http.MethodGet, path: "/api/hello/bob", code: http.StatusOK, body: "hi bob"},
		{method: http.MethodPost, path: "/api/hello/bob", code: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/hello/bob", code: http.StatusNotFound},
		{method: http.MethodPost, path: "/api/plain", code: http.StatusOK, body: "plain"},
	}
	for _, test := range tests {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(test.method, test.path, nil))
		if w.Code != test.code {
			t.Errorf("%v %v: expected %v, got %v", test.method, test.path, test.code, w.Code)
			continue
		}
		if test.body != "" && w.Body.String() != test.body {
			t.Errorf("%v %v: expected %q, got %q", test.method, test.path, test.body, w.Body.String())
		}
	}
}

func TestServerServes(t *testing.T) {
	var seen string
	srv, err := NewServer("127.0.0.1:0", func(s *Server) Handler {
		seen = s.Addr
		return s.Mux().HandleFunc("GET /ping", func(w ResponseWriter, _ *Request) {
			_, _ = io.WriteString(w, "pong")
		})
	}, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	srv.Run()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	if seen != srv.Addr || seen == "127.0.0.1:0" {
		t.Errorf("handler got a non-final address %v", seen)
	}
	resp, err := http.Get("http://" + srv.Listener().Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "pong" {
		t.Errorf("expected pong, got %q", body)
	}
	if srv.Scheme() != "http" {
		t.Errorf("expected http, got %v", srv.Scheme())
	}
}

func TestRedirectToHttps(t *testing.T) {
	h := redirectTo("example.com:8443", logger.Nop())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example.com/get_games?x=1", nil))
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %v", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://example.com:8443/get_games?x=1" {
		t.Errorf("unexpected location %v", loc)
	}
}

func TestAutoCertHostPolicy(t *testing.T) {
	m := autoCert("example.com", t.TempDir())
	if err := m.HostPolicy(context.Background(), "example.com"); err != nil {
		t.Errorf("expected the domain to be allowed: %v", err)
	}
	if err := m.HostPolicy(context.Background(), "evil.com"); err == nil {
		t.Errorf("expected other hosts to be refused")
	}
	if m := autoCert("", t.TempDir()); m.HostPolicy != nil {
		t.Errorf("expected no host policy without a domain")
	}
}
