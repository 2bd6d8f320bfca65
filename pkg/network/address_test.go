package network

import (
	"errors"
	"testing"
)

func TestAddressPort(t *testing.T) {
	tests := []struct {
		input Address
		port  int
		err   error
	}{
		{input: "", port: 0, err: ErrNoAddress},
		{input: ":", port: 0, err: ErrBadPort},
		{input: "ws://garbage.com:99a9a/rpc", port: 0, err: ErrBadPort},
		{input: ":9000", port: 9000},
		{input: "not-garbage:9999", port: 9999},
		{input: "tcp://localhost:54321", port: 54321},
		{input: "ws://localhost:54322/master", port: 54322},
	}

	for _, test := range tests {
		port, err := test.input.Port()
		if port != test.port || !errors.Is(err, test.err) {
			t.Errorf("Test fail for expected port %v but got %v with error %v", test.port, port, err)
		}
	}
}

func TestAddressScheme(t *testing.T) {
	tests := []struct {
		input    Address
		scheme   string
		hostPort string
		ws       bool
		valid    bool
	}{
		{input: "localhost:54321", scheme: SchemeTCP, hostPort: "localhost:54321", valid: true},
		{input: "tcp://127.0.0.1:1", scheme: SchemeTCP, hostPort: "127.0.0.1:1", valid: true},
		{input: "WS://master:80/rpc", scheme: SchemeWS, hostPort: "master:80", ws: true, valid: true},
		{input: "wss://master:443", scheme: SchemeWSS, hostPort: "master:443", ws: true, valid: true},
		{input: "udp://master:443", scheme: "udp", hostPort: "master:443"},
	}

	for _, test := range tests {
		if s := test.input.Scheme(); s != test.scheme {
			t.Errorf("%v: scheme %v, want %v", test.input, s, test.scheme)
		}
		if hp := test.input.HostPort(); hp != test.hostPort {
			t.Errorf("%v: host %v, want %v", test.input, hp, test.hostPort)
		}
		if test.input.IsWebsocket() != test.ws {
			t.Errorf("%v: websocket flag mismatch", test.input)
		}
		if err := test.input.Validate(); (err == nil) != test.valid {
			t.Errorf("%v: validation %v", test.input, err)
		}
	}
}
