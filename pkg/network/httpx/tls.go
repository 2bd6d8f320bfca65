package httpx

import "golang.org/x/crypto/acme/autocert"

// autoCert issues Let's Encrypt certificates on demand and keeps them in cacheDir.
// With a domain, requests for any other host are refused.
func autoCert(domain, cacheDir string) *autocert.Manager {
	m := &autocert.Manager{Prompt: autocert.AcceptTOS, Cache: autocert.DirCache(cacheDir)}
	if domain != "" {
		m.HostPolicy = autocert.HostWhitelist(domain)
	}
	return m
}
