// Package ice builds ICE server lists handed to the game clients' ICE adapters.
package ice

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	pion "github.com/pion/ice/v2"
)

// TokenCredential is the credential type of time-limited TURN REST credentials.
const TokenCredential = "token"

// DefaultTTL is how long minted credentials stay valid.
const DefaultTTL = 24 * time.Hour

// DefaultURLs is the server template for a coturn-like host
// serving both TURN transports and STUN.
var DefaultURLs = []string{
	"turn:{host}?transport=tcp",
	"turn:{host}?transport=udp",
	"stun:{host}",
}

type Server struct {
	Urls           []string `json:"urls"`
	Username       string   `json:"username,omitempty"`
	Credential     string   `json:"credential,omitempty"`
	CredentialType string   `json:"credentialType,omitempty"`
}

type Credentials struct {
	Username       string
	Credential     string
	CredentialType string
}

type Replacement struct {
	From string
	To   string
}

// Mint returns TURN REST credentials for the identity.
// The username is "<expiry unix time>:<identity>" and the credential
// is the base64 of its HMAC-SHA1 signed with the shared secret.
func Mint(identity, secret string, ttl time.Duration, now time.Time) Credentials {
	username := fmt.Sprintf("%d:%s", now.Add(ttl).Unix(), identity)
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	return Credentials{
		Username:       username,
		Credential:     base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		CredentialType: TokenCredential,
	}
}

// Expand substitutes {from} placeholders in the URLs.
func Expand(urls []string, replacements ...Replacement) []string {
	out := make([]string, len(urls))
	for i, url := range urls {
		for _, r := range replacements {
			url = strings.ReplaceAll(url, "{"+r.From+"}", r.To)
		}
		out[i] = url
	}
	return out
}

// TurnServers makes the setIceServers payload for a single TURN/STUN host.
func TurnServers(host string, creds Credentials) []Server {
	return []Server{{
		Urls:           Expand(DefaultURLs, Replacement{From: "host", To: host}),
		Username:       creds.Username,
		Credential:     creds.Credential,
		CredentialType: creds.CredentialType,
	}}
}

// ParseServers checks that every URL is a valid STUN or TURN URL.
func ParseServers(servers []Server) error {
	for _, s := range servers {
		if len(s.Urls) == 0 {
			return fmt.Errorf("ice server without urls")
		}
		urls, err := parseURLs(s.Urls)
		if err != nil {
			return err
		}
		for i, url := range urls {
			if url.IsSecure() || url.Scheme == pion.SchemeTypeTURN {
				if s.Username == "" || s.Credential == "" {
					return fmt.Errorf("turn url %q without credentials", s.Urls[i])
				}
			}
		}
	}
	return nil
}

// ValidateHost checks that the TURN/STUN host makes valid default URLs.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("empty ice host")
	}
	_, err := parseURLs(Expand(DefaultURLs, Replacement{From: "host", To: host}))
	return err
}

func parseURLs(raw []string) ([]*pion.URL, error) {
	urls := make([]*pion.URL, len(raw))
	for i, u := range raw {
		url, err := pion.ParseURL(u)
		if err != nil {
			return nil, fmt.Errorf("bad ice url %q: %w", u, err)
		}
		urls[i] = url
	}
	return urls, nil
}
