// Package probe loads a frontend page in a headless browser as a one-off
// sanity check before a run.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultTimeout bounds the whole probe, browser start-up included.
const DefaultTimeout = 20 * time.Second

type Result struct {
	URL      string
	Title    string
	Duration time.Duration
}

// Prober loads a page and reports what it saw.
type Prober interface {
	Probe(ctx context.Context, url string) (Result, error)
}

// Browser drives a headless Chrome via the DevTools protocol.
type Browser struct {
	Timeout  time.Duration
	ExecPath string // empty uses chromedp's lookup
}

func NewBrowser() *Browser {
	return &Browser{Timeout: DefaultTimeout}
}

func (b *Browser) Probe(ctx context.Context, url string) (Result, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	res := Result{URL: url}
	start := time.Now()
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&res.Title),
	)
	res.Duration = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("load %s: %w", url, err)
	}
	return res, nil
}
