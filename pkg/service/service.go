package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iceorch/iceorch/pkg/logger"
)

// Service runs in the background until it's shut down.
type Service interface {
	Run()
	Shutdown(ctx context.Context) error
}

// Group starts services in the order they were added
// and stops them in reverse.
type Group struct {
	list []Service
	log  *logger.Logger
}

func NewGroup(log *logger.Logger) *Group { return &Group{log: log} }

func (g *Group) Add(services ...Service) { g.list = append(g.list, services...) }

func (g *Group) Start() {
	for _, s := range g.list {
		g.log.Info().Msgf("Starting %v", s)
		s.Run()
	}
}

// Shutdown stops every service, even when some of them fail.
func (g *Group) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(g.list) - 1; i >= 0; i-- {
		s := g.list[i]
		g.log.Info().Msgf("Stopping %v", s)
		if err := s.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("%v: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
