package ice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/iceorch/iceorch/pkg/logger"
)

// Secret provides the shared TURN secret.
type Secret interface {
	Secret() string
}

type StaticSecret string

func (s StaticSecret) Secret() string { return string(s) }

// SecretFile is a secret stored in a file that
// may be rotated while the app is running.
type SecretFile struct {
	path   string
	mu     sync.RWMutex
	secret string
	log    *logger.Logger
}

func OpenSecretFile(path string, log *logger.Logger) (*SecretFile, error) {
	sf := &SecretFile{path: filepath.Clean(path), log: log}
	if err := sf.reload(); err != nil {
		return nil, err
	}
	return sf, nil
}

func (sf *SecretFile) Secret() string {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.secret
}

func (sf *SecretFile) reload() error {
	data, err := os.ReadFile(sf.path)
	if err != nil {
		return fmt.Errorf("turn secret: %w", err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return fmt.Errorf("turn secret: %v is empty", sf.path)
	}
	sf.mu.Lock()
	sf.secret = secret
	sf.mu.Unlock()
	return nil
}

// Watch reloads the secret on file changes until the context is done.
// The parent directory is watched so that replaced files are picked up too.
func (sf *SecretFile) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err = watcher.Add(filepath.Dir(sf.path)); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != sf.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := sf.reload(); err != nil {
				sf.log.Warn().Err(err).Msg("TURN secret reload has failed, keeping the old one")
				continue
			}
			sf.log.Info().Msg("TURN secret has been reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			sf.log.Error().Err(err).Msg("TURN secret watch error")
		}
	}
}
