// Package batch fans a slice of requests out across a fixed set of
// independent client.Clients and collects the results in input order.
//
// This is the concurrency idiom spec.md §5 describes directly:
// "concurrency comes from running independent client instances, not
// from any shared mutable state inside one instance" — Pool is simply N
// such instances, each pinned to its own goroutine, fed by a shared job
// queue.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/soheilmv/mvnet/client"
)

// Result pairs one request's outcome with the Send call's completion.
type Result struct {
	Response *client.Response
	Err      error
}

// job is one unit of work on the shared queue: a request plus where its
// Result belongs in the batch caller is waiting on.
type job struct {
	ctx   context.Context
	req   client.Request
	index int
	out   []Result
	done  *sync.WaitGroup
}

// Pool manages a fixed number of goroutines, each exclusively bound to
// one client.Client, that drain a shared job queue.
//
// A job is pinned to whichever goroutine dequeues it, and from there
// runs against that goroutine's own client for its whole lifetime — a
// connection slot and cookie jar are only safe to drive from one
// goroutine at a time (keepalive.Controller.Reuse assumes exclusive
// ownership), so jobs are never handed between clients mid-flight the
// way the teacher's WorkerPool hands bare closures to whichever worker
// is free.
type Pool struct {
	clients  []*client.Client
	jobQueue chan job
	wg       sync.WaitGroup
}

// New builds a Pool with one worker goroutine per client in clients.
// Share client.Config.Jar across the clients beforehand if the batch
// should see a single cross-request cookie jar; otherwise each client
// keeps its own.
func New(clients []*client.Client) *Pool {
	return &Pool{
		clients: clients,
		// Buffered the same way the teacher's WorkerPool buffers its
		// queue: workers can pick up the next job immediately, and
		// Send only blocks enqueuing once the burst buffer is full.
		jobQueue: make(chan job, len(clients)*4),
	}
}

// NewFromConfig builds a Pool of n clients, all constructed from the
// same cfg. Pass a shared cfg.Jar for a batch-wide cookie jar.
func NewFromConfig(n int, cfg client.Config) (*Pool, error) {
	if n <= 0 {
		n = 1
	}
	clients := make([]*client.Client, n)
	for i := range clients {
		c, err := client.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("batch: build client %d: %w", i, err)
		}
		clients[i] = c
	}
	return New(clients), nil
}

// Start launches the worker goroutines. It must be called exactly once
// before Send.
func (p *Pool) Start() {
	for _, c := range p.clients {
		c := c
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobQueue {
				resp, err := c.Send(j.ctx, j.req)
				j.out[j.index] = Result{Response: resp, Err: err}
				j.done.Done()
			}
		}()
	}
}

// Send submits every request in requests to the pool, blocks until all
// have completed, and returns their Results in the same order as
// requests. ctx is shared by every request in the batch: cancelling it
// affects each request that has not finished yet. Each request's outcome,
// including any error, is reported in its own Result.
func (p *Pool) Send(ctx context.Context, requests []client.Request) []Result {
	out := make([]Result, len(requests))
	var done sync.WaitGroup
	done.Add(len(requests))
	for i, req := range requests {
		p.jobQueue <- job{ctx: ctx, req: req, index: i, out: out, done: &done}
	}
	done.Wait()
	return out
}

// Stop signals the pool to finish all queued jobs, waits for every
// worker goroutine to exit, then closes each underlying client. No new
// jobs may be submitted after Stop is called.
func (p *Pool) Stop() error {
	close(p.jobQueue)
	p.wg.Wait()

	var firstErr error
	for _, c := range p.clients {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Count returns the number of worker clients in the pool.
func (p *Pool) Count() int { return len(p.clients) }
