package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyConfig controls the static fetcher.
type CollyConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// CollyFetcher implements Fetcher for static pages using the Colly collector.
type CollyFetcher struct {
	cfg           CollyConfig
	baseCollector *colly.Collector
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg CollyConfig) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	base := colly.NewCollector()
	if cfg.UserAgent != "" {
		base.UserAgent = cfg.UserAgent
	}
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)
	return &CollyFetcher{cfg: cfg, baseCollector: base}
}

type fetchResult struct {
	body []byte
	err  error
}

// Fetch retrieves a target's body via a cloned collector. The visit runs in
// its own goroutine so an expired or canceled attempt context unblocks the
// caller even while the collector is still mid-request; the abandoned visit
// finishes against colly's own request timeout.
func (f *CollyFetcher) Fetch(ctx context.Context, target Target) ([]byte, error) {
	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			send(fetchResult{err: fmt.Errorf("unexpected status %d", r.StatusCode)})
			return
		}
		send(fetchResult{body: append([]byte{}, r.Body...)})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	go func() {
		if err := collector.Visit(target.URL); err != nil {
			send(fetchResult{err: fmt.Errorf("visit: %w", err)})
			return
		}
		collector.Wait()
		send(fetchResult{err: errors.New("no response received")})
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", target.URL, ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("fetch %s: %w", target.URL, res.err)
		}
		return res.body, nil
	}
}
