package httpx

import (
	"net/http"
	"strings"
)

type (
	Handler        = http.Handler
	HandlerFunc    = http.HandlerFunc
	ResponseWriter = http.ResponseWriter
	Request        = http.Request
)

// Mux is a ServeMux mounted under a path prefix.
// Patterns may name a method, as in "GET /get_players/{gameId}".
type Mux struct {
	*http.ServeMux
	prefix string
}

func NewServeMux(prefix string) *Mux { return &Mux{ServeMux: http.NewServeMux(), prefix: prefix} }

func (m *Mux) pattern(p string) string {
	if method, path, ok := strings.Cut(p, " "); ok {
		return method + " " + m.prefix + path
	}
	return m.prefix + p
}

func (m *Mux) Handle(pattern string, handler Handler) *Mux {
	m.ServeMux.Handle(m.pattern(pattern), handler)
	return m
}

func (m *Mux) HandleFunc(pattern string, handler func(ResponseWriter, *Request)) *Mux {
	m.ServeMux.HandleFunc(m.pattern(pattern), handler)
	return m
}
