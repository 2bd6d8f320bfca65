package httpx

import (
	"net"
	"testing"
)

type fakeListener struct{ port int }

func (fakeListener) Accept() (net.Conn, error) { return nil, net.ErrClosed }
func (fakeListener) Close() error              { return nil }
func (f fakeListener) Addr() net.Addr          { return &net.TCPAddr{Port: f.port} }

func onPort(port int) Listener { return Listener{fakeListener{port: port}} }

func TestBuildAddress(t *testing.T) {
	tests := []struct {
		addr string
		ls   Listener
		want string
	}{
		{addr: "", want: "localhost"},
		{addr: ":0", ls: onPort(0), want: "localhost"},
		{addr: "", ls: onPort(6601), want: "localhost:6601"},
		{addr: ":8080", ls: onPort(8081), want: "localhost:8081"},
		{addr: "registry.example.com:8080", ls: onPort(8080), want: "registry.example.com:8080"},
		{addr: "registry.example.com", ls: onPort(443), want: "registry.example.com"},
		{addr: "::1", ls: onPort(9000), want: "[::1]:9000"},
		{addr: "tcp://bad:1x", want: "tcp://bad:1x"},
	}
	for _, test := range tests {
		if got := buildAddress(test.addr, test.ls); got != test.want {
			t.Errorf("%q: expected %v, got %v", test.addr, test.want, got)
		}
	}
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		addr Address
		host string
		port int
	}{
		{addr: "127.0.0.1:3333", host: "127.0.0.1", port: 3333},
		{addr: ":8080", host: "", port: 8080},
		{addr: "host:abc", host: "host", port: 0},
		{addr: "host", host: "host", port: 0},
	}
	for _, test := range tests {
		host, port := test.addr.SplitHostPort()
		if host != test.host || port != test.port {
			t.Errorf("%v: expected %v %v, got %v %v", test.addr, test.host, test.port, host, port)
		}
	}
}
