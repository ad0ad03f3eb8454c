package motor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrSchedulerClosed = errors.New("scheduler closed")

// Task is a unit of motion. ctx is cancelled only when a shutdown drain times out.
type Task func(ctx context.Context) error

type SchedulerOption func(*Scheduler)

// WithPool makes the scheduler take a slot from pool for every task it runs.
// Schedulers sharing a pool of capacity n run at most n tasks at once.
func WithPool(pool chan struct{}) SchedulerOption {
	return func(s *Scheduler) {
		s.pool = pool
	}
}

// WithErrorHandler is called with every error returned by a task.
func WithErrorHandler(h func(error)) SchedulerOption {
	return func(s *Scheduler) {
		s.onError = h
	}
}

// Scheduler runs tasks one at a time, in submission order, on its own goroutine.
type Scheduler struct {
	name    string
	pool    chan struct{}
	onError func(error)

	mu     sync.Mutex
	queue  []Task
	closed bool
	wake   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(name string, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	go s.run()

	return s
}

// Submit queues t. It never waits for t to run.
func (s *Scheduler) Submit(t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	s.queue = append(s.queue, t)
	s.signal()

	return nil
}

// Pending returns the number of queued tasks that have not started yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue)
}

// Close stops accepting tasks and waits until the queue drains.
// When ctx is done first, the running task is cancelled and Close returns ctx.Err()
// once the worker exits.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.signal()
	s.mu.Unlock()

	select {
	case <-s.done:
		s.cancel()
		return nil
	case <-ctx.Done():
		logrus.Warnf("%s: motion drain timed out, interrupting", s.name)
		s.cancel()
		<-s.done
		return ctx.Err()
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer close(s.done)

	for {
		t, ok := s.next()
		if !ok {
			logrus.Debugf("%s: scheduler stopped", s.name)
			return
		}

		s.execute(t)
	}
}

func (s *Scheduler) next() (Task, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			t := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()

			return t, true
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return nil, false
		}
		<-s.wake
	}
}

func (s *Scheduler) execute(t Task) {
	if s.pool != nil {
		select {
		case s.pool <- struct{}{}:
			defer func() {
				<-s.pool
			}()
		case <-s.ctx.Done():
		}
	}

	if err := t(s.ctx); err != nil {
		logrus.Errorf("%s: motion failed: %s", s.name, err)
		if s.onError != nil {
			s.onError(err)
		}
	}
}
