package httpx

import (
	"net"
	"strconv"
)

type Address string

// SplitHostPort returns the host and the numeric port of the address.
// A missing or broken port is returned as 0.
func (a Address) SplitHostPort() (string, int) {
	host, port, err := net.SplitHostPort(string(a))
	if err != nil {
		return string(a), 0
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return host, 0
	}
	return host, p
}

// buildAddress puts the port the listener has got onto the host of the address.
// Empty hosts become localhost, and default web ports are omitted.
//
// As example, address host.com:8080 and listener 123.123.123.123:8888 will be
// transformed to host.com:8888.
func buildAddress(address string, l Listener) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if host == "" {
		host = "localhost"
	}
	if port := l.GetPort(); port > 0 && port != 80 && port != 443 {
		return net.JoinHostPort(host, strconv.Itoa(port))
	}
	return host
}
