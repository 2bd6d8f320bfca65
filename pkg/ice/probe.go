package ice

import (
	"context"
	"errors"
	"net"

	"github.com/pion/stun"
)

var ErrNoMappedAddress = errors.New("no mapped address in the STUN response")

// Probe sends a STUN binding request to the addr (host:port)
// and returns the reflexive address it reported.
func Probe(ctx context.Context, addr string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return "", err
	}
	c, err := stun.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return "", err
	}
	defer func() { _ = c.Close() }()

	type result struct {
		addr string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var res result
		err := c.Do(stun.MustBuild(stun.TransactionID, stun.BindingRequest), func(e stun.Event) {
			if e.Error != nil {
				res.err = e.Error
				return
			}
			var xor stun.XORMappedAddress
			if err := xor.GetFrom(e.Message); err != nil {
				res.err = ErrNoMappedAddress
				return
			}
			res.addr = xor.String()
		})
		if err != nil {
			res.err = err
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.addr, r.err
	}
}
