/*
DESCRIPTION
  Background task queue.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  It is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

// Package tasks implements a best-effort, in-process background task
// queue. Tasks are named and carry string parameters. Each task is
// run by the handler registered for its name, and retried with linear
// backoff until it succeeds or runs out of attempts. A task may run
// more than once, so handlers must be safe to repeat. Failures are
// logged and never reported to whoever added the task.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Defaults.
const (
	defaultWorkers     = 4
	defaultMaxAttempts = 5
	defaultBackoff     = time.Second
	defaultBuffer      = 1024
)

// Errors.
var (
	ErrUnknownTask = errors.New("unknown task")
	ErrQueueFull   = errors.New("task queue full")
	ErrStopped     = errors.New("task queue stopped")
)

// Params holds task parameters.
type Params map[string]string

// Task is a unit of background work.
type Task struct {
	ID      string // Unique ID, which is the same for each attempt.
	Name    string // Handler name.
	Params  Params
	Attempt int // Current attempt, starting from 1.
}

// Handler performs a task. Returning an error causes the task to be retried.
type Handler func(ctx context.Context, t *Task) error

// Queue is a task queue. Tasks may be added before the queue is run
// and are buffered until a worker is free.
type Queue struct {
	mu          sync.RWMutex
	handlers    map[string]Handler
	ch          chan *Task
	pending     sync.WaitGroup
	stopped     bool
	log         logging.Logger
	workers     int
	maxAttempts int
	backoff     time.Duration
}

// Option is a functional option supplied to NewQueue.
type Option func(*Queue) error

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(q *Queue) error {
		if n < 1 {
			return fmt.Errorf("invalid number of workers: %d", n)
		}
		q.workers = n
		return nil
	}
}

// WithMaxAttempts sets the number of times a task is attempted.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) error {
		if n < 1 {
			return fmt.Errorf("invalid number of attempts: %d", n)
		}
		q.maxAttempts = n
		return nil
	}
}

// WithBackoff sets the backoff unit. The wait before attempt n+1 is n
// times the unit.
func WithBackoff(d time.Duration) Option {
	return func(q *Queue) error {
		if d < 0 {
			return fmt.Errorf("invalid backoff: %v", d)
		}
		q.backoff = d
		return nil
	}
}

// WithBuffer sets the number of tasks that can wait for a worker.
func WithBuffer(n int) Option {
	return func(q *Queue) error {
		if n < 1 {
			return fmt.Errorf("invalid buffer size: %d", n)
		}
		q.ch = make(chan *Task, n)
		return nil
	}
}

// NewQueue returns a new queue.
func NewQueue(log logging.Logger, options ...Option) (*Queue, error) {
	q := &Queue{
		handlers:    make(map[string]Handler),
		log:         log,
		workers:     defaultWorkers,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for i, opt := range options {
		err := opt(q)
		if err != nil {
			return nil, fmt.Errorf("could not apply option # %d, %w", i, err)
		}
	}
	if q.ch == nil {
		q.ch = make(chan *Task, defaultBuffer)
	}
	return q, nil
}

// Handle registers the handler for the named task, replacing any
// existing handler.
func (q *Queue) Handle(name string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = h
}

// Add adds a task and returns its ID. It does not wait for the task
// to run.
func (q *Queue) Add(ctx context.Context, name string, params Params) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return "", ErrStopped
	}
	_, ok := q.handlers[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	t := &Task{ID: uuid.NewString(), Name: name, Params: params}
	q.pending.Add(1)
	select {
	case q.ch <- t:
	default:
		q.pending.Done()
		return "", ErrQueueFull
	}
	q.log.Debug("added task", "id", t.ID, "name", name)
	return t.ID, nil
}

// Wait waits until all tasks added so far have finished, successfully
// or not, or have been dropped by a stopped queue. Wait must not be
// called concurrently with Add.
func (q *Queue) Wait() {
	q.pending.Wait()
}

// Run runs the workers until ctx is cancelled, after which the queue
// is stopped. Tasks still buffered are dropped and later tasks are
// refused with ErrStopped.
func (q *Queue) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case t := <-q.ch:
					q.process(gctx, t)
					q.pending.Done()
				}
			}
		})
	}
	err := g.Wait()

	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	for {
		select {
		case t := <-q.ch:
			q.log.Warning("task dropped", "id", t.ID, "name", t.Name)
			q.pending.Done()
		default:
			return err
		}
	}
}

// process runs a task until it succeeds or runs out of attempts.
func (q *Queue) process(ctx context.Context, t *Task) {
	q.mu.RLock()
	h := q.handlers[t.Name]
	q.mu.RUnlock()

	for t.Attempt = 1; ; t.Attempt++ {
		err := q.call(ctx, h, t)
		if err == nil {
			q.log.Debug("task done", "id", t.ID, "name", t.Name, "attempt", t.Attempt)
			return
		}
		if t.Attempt >= q.maxAttempts {
			q.log.Error("task failed", "id", t.ID, "name", t.Name, "attempts", t.Attempt, "error", err)
			return
		}
		q.log.Warning("task attempt failed", "id", t.ID, "name", t.Name, "attempt", t.Attempt, "error", err)

		select {
		case <-ctx.Done():
			q.log.Warning("task abandoned", "id", t.ID, "name", t.Name)
			return
		case <-time.After(time.Duration(t.Attempt) * q.backoff):
		}
	}
}

// call calls h, converting a panic into an error.
func (q *Queue) call(ctx context.Context, h Handler, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return h(ctx, t)
}
