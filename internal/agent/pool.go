package agent

import (
	"context"
	"runtime"
	"sync"

	urlutil "github.com/law-makers/dealcrawl/internal/utils/url"
)

// Job is one loop to run
type Job struct {
	Site  string
	Start string
}

// Result is the outcome of one Job
type Result struct {
	Job    Job
	Report *Report
	Err    error
}

// Runner runs a single job, typically by building an Orchestrator with its
// own Session
type Runner func(ctx context.Context, job Job) (*Report, error)

// OptimalConcurrency picks how many loops may run at once. Every loop owns
// a browser, so it stays well below the CPU count.
func OptimalConcurrency() int {
	numCPU := runtime.NumCPU()

	// Assume ~300MB per browser
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	availMB := (m.Sys - m.Alloc) / 1024 / 1024
	maxByMemory := int(availMB / 300)

	optimal := numCPU / 2
	if optimal < 1 {
		optimal = 1
	}
	if optimal > 8 {
		optimal = 8
	}
	if maxByMemory > 0 && maxByMemory < optimal {
		return maxByMemory
	}
	return optimal
}

// Pool runs jobs concurrently. Jobs for the same host run one after another
// so two loops never browse one site at the same time.
type Pool struct {
	run         Runner
	concurrency int
}

// NewPool creates a pool. If concurrency <= 0, it is derived from the machine.
func NewPool(run Runner, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = OptimalConcurrency()
	}
	return &Pool{run: run, concurrency: concurrency}
}

// GroupByHost groups jobs by the base address of their start URL, keeping
// the order of first appearance
func GroupByHost(jobs []Job) [][]Job {
	index := make(map[string]int)
	var groups [][]Job
	for _, j := range jobs {
		key, err := urlutil.BaseAddress(j.Start)
		if err != nil {
			key = "default"
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], j)
	}
	return groups
}

// Run starts every job and returns a channel that yields one Result per job.
// Jobs still queued when ctx is done report its error. The channel is closed
// once every job is accounted for.
func (p *Pool) Run(ctx context.Context, jobs []Job) <-chan Result {
	results := make(chan Result, len(jobs))
	sem := make(chan struct{}, p.concurrency)

	var wg sync.WaitGroup
	for _, group := range GroupByHost(jobs) {
		wg.Add(1)
		go func(group []Job) {
			defer wg.Done()
			for _, job := range group {
				if err := ctx.Err(); err != nil {
					results <- Result{Job: job, Err: err}
					continue
				}
				select {
				case <-ctx.Done():
					results <- Result{Job: job, Err: ctx.Err()}
					continue
				case sem <- struct{}{}: // Acquire semaphore
				}

				report, err := p.run(ctx, job)
				<-sem // Release semaphore
				results <- Result{Job: job, Report: report, Err: err}
			}
		}(group)
	}

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}
