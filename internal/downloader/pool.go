package downloader

import (
	"context"
	"sync"

	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// WorkerPool downloads images concurrently
type WorkerPool struct {
	downloader  *Downloader
	concurrency int
}

// NewWorkerPool creates a pool; concurrency is clamped to 1..16
func NewWorkerPool(d *Downloader, concurrency int) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}
	return &WorkerPool{downloader: d, concurrency: concurrency}
}

// DownloadAll fetches the image of every product that has one. Products
// sharing an image URL are fetched once. Results come back in completion
// order.
func (wp *WorkerPool) DownloadAll(ctx context.Context, products []*models.Product) []*Result {
	seen := make(map[string]bool)
	var todo []*models.Product
	for _, p := range products {
		if p == nil || p.ImageURL == "" || seen[p.ImageURL] {
			continue
		}
		seen[p.ImageURL] = true
		todo = append(todo, p)
	}
	if len(todo) == 0 {
		return []*Result{}
	}

	jobs := make(chan *models.Product, len(todo))
	results := make(chan *Result, len(todo))
	for _, p := range todo {
		jobs <- p
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 1; w <= wp.concurrency && w <= len(todo); w++ {
		wg.Add(1)
		go wp.worker(ctx, w, jobs, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]*Result, 0, len(todo))
	for r := range results {
		all = append(all, r)
	}
	return all
}

// worker processes download jobs from the jobs channel
func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan *models.Product, results chan<- *Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for p := range jobs {
		if ctx.Err() != nil {
			results <- &Result{Product: p, URL: p.ImageURL, Error: ctx.Err()}
			continue
		}
		log.Debug().Int("worker_id", id).Str("url", p.ImageURL).Msg("Downloading image")
		results <- wp.downloader.Download(ctx, p)
	}
}
