package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/congo-pay/rosca_bridge/internal/logging"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool closed")

// Job is one unit of work for a key.
type Job func(ctx context.Context)

// Pool runs jobs for the same key one after another in submission order,
// while jobs for different keys run concurrently up to a global limit. A
// slow job only delays later jobs of its own key.
type Pool struct {
	ctx    context.Context
	sem    chan struct{}
	logger *slog.Logger

	mu     sync.Mutex
	queues map[int64][]Job
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool whose jobs receive ctx. concurrency bounds the
// number of jobs executing at once.
func NewPool(ctx context.Context, concurrency int, logger *slog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pool{
		ctx:    ctx,
		sem:    make(chan struct{}, concurrency),
		logger: logger,
		queues: make(map[int64][]Job),
	}
}

// Submit queues job under key.
func (p *Pool) Submit(key int64, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	queue, running := p.queues[key]
	p.queues[key] = append(queue, job)
	if !running {
		p.wg.Add(1)
		go p.drain(key)
	}
	return nil
}

// Close stops accepting jobs and waits for every queued job to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) drain(key int64) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		queue := p.queues[key]
		if len(queue) == 0 {
			delete(p.queues, key)
			p.mu.Unlock()
			return
		}
		job := queue[0]
		p.queues[key] = queue[1:]
		p.mu.Unlock()

		p.sem <- struct{}{}
		p.run(key, job)
		<-p.sem
	}
}

func (p *Pool) run(key int64, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logging.ForChat(p.logger, key).Error("job panicked", slog.String("error", fmt.Sprint(r)))
		}
	}()
	job(p.ctx)
}
