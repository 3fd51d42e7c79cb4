package worker

import (
	"runtime"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/zeebo/xxh3"
)

// queueSize is the amount of functions a worker can have queued before Submit blocks.
const queueSize = 256

// Pool runs submitted functions on a fixed set of goroutines. Functions submitted with the same key are
// always run by the same goroutine, in the order they were submitted.
type Pool struct {
	queues []chan func()
	wg     sync.WaitGroup

	// mu is held for reading while submitting, and for writing while closing the queues.
	mu     sync.RWMutex
	closed bool
}

// New starts a Pool with n workers. If n is not positive, a worker is started per CPU.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &Pool{queues: make([]chan func(), n)}
	for i := range p.queues {
		q := make(chan func(), queueSize)
		p.queues[i] = q

		p.wg.Add(1)
		go p.worker(q)
	}
	return p
}

func (p *Pool) worker(q chan func()) {
	defer p.wg.Done()
	for f := range q {
		run(f)
	}
}

func run(f func()) {
	defer func() {
		if err := recover(); err != nil {
			sentry.CurrentHub().Clone().Recover(err)
		}
	}()
	f()
}

// Submit queues f on the worker owning key. It blocks while that worker's queue is full, and returns false
// if the Pool was closed. A Submit blocked on a full queue delays Close until the function was queued.
func (p *Pool) Submit(key []byte, f func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}
	p.queues[xxh3.Hash(key)%uint64(len(p.queues))] <- f
	return true
}

// Size returns the amount of workers in the Pool.
func (p *Pool) Size() int {
	return len(p.queues)
}

// Close stops accepting functions, and waits for all queued functions to run. Functions queued must not
// call Submit on the same Pool while it is closing.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
