package network

import (
	"errors"
	"strconv"
	"strings"
)

// Address is an endpoint in the form [scheme://]host:port.
// Without a scheme tcp is assumed.
type Address string

const (
	SchemeTCP = "tcp"
	SchemeWS  = "ws"
	SchemeWSS = "wss"
)

var (
	ErrNoAddress     = errors.New("no address")
	ErrBadPort       = errors.New("port is not a number")
	ErrUnknownScheme = errors.New("unknown scheme")
)

// Scheme returns the transport scheme of the address.
func (a Address) Scheme() string {
	if i := strings.Index(string(a), "://"); i >= 0 {
		return strings.ToLower(string(a)[:i])
	}
	return SchemeTCP
}

// HostPort strips the scheme and any path.
func (a Address) HostPort() string {
	s := string(a)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

func (a Address) Port() (int, error) {
	hp := a.HostPort()
	if len(hp) == 0 {
		return 0, ErrNoAddress
	}
	parts := strings.Split(hp, ":")
	port := parts[len(parts)-1]
	if val, err := strconv.Atoi(port); err == nil {
		return val, nil
	}
	return 0, ErrBadPort
}

// Validate checks that the address has a known scheme and a numeric port.
func (a Address) Validate() error {
	switch a.Scheme() {
	case SchemeTCP, SchemeWS, SchemeWSS:
	default:
		return ErrUnknownScheme
	}
	_, err := a.Port()
	return err
}

func (a Address) IsWebsocket() bool { s := a.Scheme(); return s == SchemeWS || s == SchemeWSS }
