// Package downloader saves product images next to the extracted records
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/law-makers/dealcrawl/internal/config"
	"github.com/law-makers/dealcrawl/internal/ratelimit"
	urlutil "github.com/law-makers/dealcrawl/internal/utils/url"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

const maxImageBytes = 20 << 20

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".avif": true}

// Result represents the result of one image download
type Result struct {
	Product  *models.Product
	URL      string
	FilePath string
	Size     int64
	Error    error
	Duration time.Duration
}

// Options configures where and how images are fetched
type Options struct {
	OutputDir string
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// Limiter, when set, spaces requests per host
	Limiter ratelimit.RateLimiter
}

// Downloader fetches product images with streaming I/O
type Downloader struct {
	client *http.Client
	opts   Options
}

// New creates a Downloader
func New(opts Options) *Downloader {
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Downloader{client: client, opts: opts}
}

// Download saves the image of p under OutputDir/<site>/. Products without
// an image URL yield a result with an error.
func (d *Downloader) Download(ctx context.Context, p *models.Product) *Result {
	start := time.Now()
	result := &Result{Product: p, URL: p.ImageURL}
	fail := func(err error) *Result {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	if err := urlutil.ValidateURL(p.ImageURL); err != nil {
		return fail(fmt.Errorf("invalid image URL: %w", err))
	}

	dir := filepath.Join(d.opts.OutputDir, sanitizeSegment(p.Site))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}
	result.FilePath = filepath.Join(dir, ImageFilename(p))

	if d.opts.Limiter != nil {
		if err := d.opts.Limiter.Wait(ctx, p.ImageURL); err != nil {
			return fail(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ImageURL, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)
	// Image CDNs often refuse hotlinks without the product page as referer
	if p.URL != "" {
		req.Header.Set("Referer", p.URL)
	}
	for key, value := range d.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("bad status: %s", resp.Status))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fail(fmt.Errorf("not an image: %s", ct))
	}

	outFile, err := os.Create(result.FilePath)
	if err != nil {
		return fail(fmt.Errorf("failed to create file: %w", err))
	}
	defer outFile.Close()

	n, err := io.Copy(outFile, io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		os.Remove(result.FilePath)
		return fail(fmt.Errorf("failed to write file: %w", err))
	}

	result.Size = n
	result.Duration = time.Since(start)
	log.Debug().
		Str("url", p.ImageURL).
		Str("file", result.FilePath).
		Int64("bytes", n).
		Dur("duration", result.Duration).
		Msg("Image saved")
	return result
}

// ImageFilename names the file for a product image. The stem is stable for
// a product URL, so repeated runs overwrite instead of piling up copies.
func ImageFilename(p *models.Product) string {
	key := p.URL
	if key == "" {
		key = p.ImageURL
	}
	stem := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()

	ext := ".jpg"
	if u, err := url.Parse(p.ImageURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); imageExtensions[e] {
			ext = e
		}
	}
	return stem + ext
}

// sanitizeSegment keeps a site name safe to use as a directory
func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "..", "_")
	if s == "" {
		return "unknown"
	}
	return s
}
