package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iceorch/iceorch/pkg/logger"
)

type fakeService struct {
	name  string
	err   error
	trace *[]string
}

func (f fakeService) Run()                           { *f.trace = append(*f.trace, "run "+f.name) }
func (f fakeService) Shutdown(context.Context) error { *f.trace = append(*f.trace, "stop "+f.name); return f.err }
func (f fakeService) String() string                 { return f.name }

func TestGroupOrder(t *testing.T) {
	var trace []string
	g := NewGroup(logger.Nop())
	g.Add(fakeService{name: "a", trace: &trace}, fakeService{name: "b", trace: &trace})

	g.Start()
	if err := g.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := "run a,run b,stop b,stop a"
	if got := strings.Join(trace, ","); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGroupShutdownErrors(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	g := NewGroup(logger.Nop())
	g.Add(
		fakeService{name: "a", err: boom, trace: &trace},
		fakeService{name: "b", err: context.Canceled, trace: &trace},
		fakeService{name: "c", trace: &trace},
	)

	err := g.Shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected boom in %v", err)
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("canceled contexts are not errors: %v", err)
	}
	if len(trace) != 3 {
		t.Errorf("expected every service to be stopped, got %v", trace)
	}
}
