// Package loop provides a single-threaded reactor.
//
// Everything that touches orchestration state runs on the loop goroutine:
// RPC callbacks and timer firings are posted into it and executed one by one,
// so the state itself needs no locking.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iceorch/iceorch/pkg/logger"
)

// Scheduler queues work for the reactor.
type Scheduler interface {
	// Post runs fn on the reactor as soon as possible.
	Post(fn func())
	// After runs fn on the reactor once d elapses.
	After(d time.Duration, fn func()) Timer
	Now() time.Time
}

// Timer is a pending After call.
type Timer interface {
	// Stop cancels the call. It returns false if the call
	// has been already executed or stopped.
	Stop() bool
}

type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool

	log *logger.Logger
}

func New(log *logger.Logger) *Loop {
	if log == nil {
		log = logger.Default()
	}
	return &Loop{wake: make(chan struct{}, 1), log: log}
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type timer struct {
	t       *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *timer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.t.Stop()
	return !t.fired.Load()
}

func (l *Loop) After(d time.Duration, fn func()) Timer {
	tm := &timer{}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			// a timer can be stopped after it went off but before it was run
			if tm.stopped.Load() {
				return
			}
			tm.fired.Store(true)
			fn()
		})
	})
	return tm
}

// Run executes posted functions until the context is done.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()
	for {
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()
			l.exec(fn)
			if ctx.Err() != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Msgf("loop task panic: %v", r)
		}
	}()
	fn()
}

// Repeat is a self-re-arming timer.
// Both its callback and Stop must run on the reactor.
type Repeat struct {
	s       Scheduler
	d       time.Duration
	fn      func()
	t       Timer
	stopped bool
}

// Every calls fn each d until stopped. The next period
// starts after fn returns.
func Every(s Scheduler, d time.Duration, fn func()) *Repeat {
	r := &Repeat{s: s, d: d, fn: fn}
	r.arm()
	return r
}

func (r *Repeat) arm() {
	r.t = r.s.After(r.d, func() {
		if r.stopped {
			return
		}
		r.fn()
		if !r.stopped {
			r.arm()
		}
	})
}

func (r *Repeat) Stop() bool {
	if r.stopped {
		return false
	}
	r.stopped = true
	return r.t.Stop()
}
