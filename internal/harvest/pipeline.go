package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/metrics"
)

// PipelineConfig bounds a run.
type PipelineConfig struct {
	// Parallelism caps concurrently processed targets.
	Parallelism int
	// TargetTimeout bounds one target including retries' individual attempts.
	TargetTimeout time.Duration
	// RunBudget bounds the whole run; targets not started before it expires
	// are dropped.
	RunBudget time.Duration
	// SnapshotPrefix is the blob path prefix for run summaries.
	SnapshotPrefix string
	// Topic, when set together with a publisher, receives a run-completed event.
	Topic string
}

// Pipeline executes harvest runs against the canonical store.
type Pipeline struct {
	store     catalog.RecordStore
	fetcher   Fetcher
	renderer  Fetcher
	extractor *Extractor
	retry     *RetryPolicy
	clock     catalog.Clock
	blobs     catalog.BlobStore
	publisher catalog.Publisher
	cfg       PipelineConfig
	logger    *zap.Logger
}

// NewPipeline constructs a Pipeline. The renderer, blob store, and publisher
// are optional capabilities; targets marked Render fall back to the static
// fetcher when no renderer is configured.
func NewPipeline(
	store catalog.RecordStore,
	fetcher Fetcher,
	renderer Fetcher,
	extractor *Extractor,
	retry *RetryPolicy,
	clock catalog.Clock,
	blobs catalog.BlobStore,
	publisher catalog.Publisher,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 2
	}
	if cfg.TargetTimeout <= 0 {
		cfg.TargetTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:     store,
		fetcher:   fetcher,
		renderer:  renderer,
		extractor: extractor,
		retry:     retry,
		clock:     clock,
		blobs:     blobs,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run visits every target within the run budget and upserts the drafts it
// extracts. Target failures are counted and logged but never abort the run;
// the summary reflects whatever was written before the budget ran out.
func (p *Pipeline) Run(ctx context.Context, targets []Target) (Summary, error) {
	summary := Summary{Started: p.clock.Now()}
	if p.cfg.RunBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RunBudget)
		defer cancel()
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, p.cfg.Parallelism)
	)
	for _, target := range targets {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			wg.Add(1)
			go func(target Target) {
				defer wg.Done()
				defer func() { <-sem }()
				p.processTarget(ctx, target, &mu, &summary)
			}(target)
			continue
		}
		// Run budget exhausted: remaining targets count as failed.
		mu.Lock()
		summary.TargetsFailed++
		mu.Unlock()
		metrics.ObserveHarvestTarget("failed")
		p.logger.Warn("run budget exhausted, dropping target", zap.String("url", target.URL))
	}
	wg.Wait()

	summary.Finished = p.clock.Now()
	p.snapshotAndPublish(summary)
	return summary, nil
}

func (p *Pipeline) processTarget(ctx context.Context, target Target, mu *sync.Mutex, summary *Summary) {
	body, err := p.fetchWithRetry(ctx, target)
	if err != nil {
		mu.Lock()
		summary.TargetsFailed++
		mu.Unlock()
		metrics.ObserveHarvestTarget("failed")
		p.logger.Warn("target failed, skipping", zap.String("url", target.URL), zap.Error(err))
		return
	}

	drafts, err := p.extractor.Extract(body, target.URL)
	if err != nil {
		mu.Lock()
		summary.TargetsFailed++
		mu.Unlock()
		metrics.ObserveHarvestTarget("failed")
		p.logger.Warn("extraction failed, skipping target", zap.String("url", target.URL), zap.Error(err))
		return
	}

	mu.Lock()
	summary.TargetsVisited++
	summary.DraftsExtracted += len(drafts)
	mu.Unlock()
	metrics.ObserveHarvestTarget("visited")

	for _, draft := range drafts {
		normalized, err := draft.Normalize()
		if err != nil {
			// Drafts missing a natural key or title never reach the store.
			mu.Lock()
			summary.DraftsDiscarded++
			mu.Unlock()
			metrics.ObserveHarvestDraftDiscarded()
			continue
		}
		rec, err := p.store.Upsert(ctx, normalized)
		if err != nil {
			// A store failure aborts only this draft's target context, not
			// the run; records already written stay written.
			mu.Lock()
			summary.UpsertFailures++
			mu.Unlock()
			p.logger.Error("upsert failed",
				zap.String("natural_key", draft.NaturalKey), zap.Error(err))
			continue
		}
		metrics.ObserveHarvestUpsert()
		mu.Lock()
		summary.Records = append(summary.Records, RecordRef{
			ID:         rec.ID,
			NaturalKey: rec.NaturalKey,
			Title:      rec.Title,
		})
		mu.Unlock()
	}
}

func (p *Pipeline) fetchWithRetry(ctx context.Context, target Target) ([]byte, error) {
	fetcher := p.fetcher
	if target.Render && p.renderer != nil {
		fetcher = p.renderer
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.TargetTimeout)
		body, err := fetcher.Fetch(attemptCtx, target)
		cancel()
		if err == nil {
			return body, nil
		}
		lastErr = err
		if p.retry == nil || !p.retry.ShouldRetry(err, attempt+1) {
			return nil, lastErr
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.retry.Backoff(attempt)):
		}
	}
}

func (p *Pipeline) snapshotAndPublish(summary Summary) {
	// Snapshot and event publication are best-effort bookkeeping; neither
	// blocks nor fails the run. Use a fresh context so they still happen
	// when the run budget expired.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload, err := json.Marshal(summary)
	if err != nil {
		p.logger.Error("marshal run summary", zap.Error(err))
		return
	}
	if p.blobs != nil {
		path := fmt.Sprintf("%s/run-%d.json", p.cfg.SnapshotPrefix, summary.Started.Unix())
		uri, err := p.blobs.PutObject(ctx, path, "application/json", payload)
		if err != nil {
			p.logger.Warn("snapshot upload failed", zap.Error(err))
		} else {
			p.logger.Info("run snapshot written", zap.String("uri", uri))
		}
	}
	if p.publisher != nil && p.cfg.Topic != "" {
		if _, err := p.publisher.Publish(ctx, p.cfg.Topic, summary); err != nil {
			p.logger.Warn("run event publish failed", zap.Error(err))
		}
	}
}
