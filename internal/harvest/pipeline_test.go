package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/storage/memory"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

type seqIDGen struct{ n atomic.Int64 }

func (g *seqIDGen) NewID() (string, error) {
	return fmt.Sprintf("id-%04d", g.n.Add(1)), nil
}

// stubFetcher serves canned pages keyed by URL; unknown URLs fail.
type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, target Target) ([]byte, error) {
	page, ok := f.pages[target.URL]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return []byte(page), nil
}

// hangingFetcher never returns until the attempt context expires.
type hangingFetcher struct{}

func (hangingFetcher) Fetch(ctx context.Context, _ Target) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func listingPage(cards ...string) string {
	page := "<html><body>"
	for _, c := range cards {
		page += c
	}
	return page + "</body></html>"
}

func card(href, title, price string) string {
	link := ""
	if href != "" {
		link = `<a class="core" href="` + href + `"></a>`
	}
	return `<article class="prd">` + link +
		`<h3 class="name">` + title + `</h3>` +
		`<div class="prc">` + price + `</div>` +
		`<img class="img" data-src="https://img.example/p.jpg"/></article>`
}

func newTestPipeline(t *testing.T, store catalog.RecordStore, fetcher Fetcher, cfg PipelineConfig) *Pipeline {
	t.Helper()
	return NewPipeline(
		store, fetcher, nil,
		NewExtractor(Selectors{}),
		NewRetryPolicy(2),
		stubClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		nil, nil, cfg, zap.NewNop(),
	)
}

func TestRunUpsertsExtractedDrafts(t *testing.T) {
	store := memory.NewRecordStore(&seqIDGen{}, stubClock{now: time.Now()})
	fetcher := &stubFetcher{pages: map[string]string{
		"https://shop.example/phones": listingPage(
			card("/p/one.html", "Phone One", "1,299 MAD"),
			card("/p/two.html", "Phone Two", "899 MAD"),
		),
	}}
	p := newTestPipeline(t, store, fetcher, PipelineConfig{Parallelism: 2, TargetTimeout: time.Second})

	summary, err := p.Run(context.Background(), []Target{{URL: "https://shop.example/phones"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TargetsVisited)
	assert.Equal(t, 0, summary.TargetsFailed)
	assert.Equal(t, 2, summary.DraftsExtracted)
	assert.Equal(t, 0, summary.DraftsDiscarded)
	require.Len(t, summary.Records, 2)
	assert.Equal(t, 2, store.Len())

	rec, err := store.FindByID(context.Background(), summary.Records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/p/one.html", rec.NaturalKey)
	assert.Equal(t, int64(1299), rec.NumericPrice)
}

func TestRunSkipsFailedTargetAndContinues(t *testing.T) {
	store := memory.NewRecordStore(&seqIDGen{}, stubClock{now: time.Now()})
	fetcher := &stubFetcher{pages: map[string]string{
		"https://shop.example/good": listingPage(card("/p/ok.html", "Kept", "10 MAD")),
	}}
	p := newTestPipeline(t, store, fetcher, PipelineConfig{Parallelism: 1, TargetTimeout: time.Second})

	summary, err := p.Run(context.Background(), []Target{
		{URL: "https://shop.example/down"},
		{URL: "https://shop.example/good"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TargetsFailed)
	assert.Equal(t, 1, summary.TargetsVisited)
	assert.Equal(t, 1, store.Len())
}

func TestRunSkipsTimedOutTarget(t *testing.T) {
	store := memory.NewRecordStore(&seqIDGen{}, stubClock{now: time.Now()})
	p := newTestPipeline(t, store, hangingFetcher{}, PipelineConfig{
		Parallelism:   1,
		TargetTimeout: 20 * time.Millisecond,
	})

	summary, err := p.Run(context.Background(), []Target{{URL: "https://shop.example/slow"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TargetsFailed)
	assert.Equal(t, 0, store.Len())
}

func TestRunDiscardsDraftsWithoutNaturalKey(t *testing.T) {
	store := memory.NewRecordStore(&seqIDGen{}, stubClock{now: time.Now()})
	fetcher := &stubFetcher{pages: map[string]string{
		"https://shop.example/mixed": listingPage(
			card("", "No Link", "5 MAD"),
			card("/p/real.html", "Real", "15 MAD"),
		),
	}}
	p := newTestPipeline(t, store, fetcher, PipelineConfig{Parallelism: 1, TargetTimeout: time.Second})

	summary, err := p.Run(context.Background(), []Target{{URL: "https://shop.example/mixed"}})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.DraftsExtracted)
	assert.Equal(t, 1, summary.DraftsDiscarded)
	assert.Equal(t, 1, store.Len())
}

func TestRunIsIdempotent(t *testing.T) {
	store := memory.NewRecordStore(&seqIDGen{}, stubClock{now: time.Now()})
	fetcher := &stubFetcher{pages: map[string]string{
		"https://shop.example/phones": listingPage(card("/p/one.html", "Phone One", "1,299 MAD")),
	}}
	p := newTestPipeline(t, store, fetcher, PipelineConfig{Parallelism: 2, TargetTimeout: time.Second})

	first, err := p.Run(context.Background(), []Target{{URL: "https://shop.example/phones"}})
	require.NoError(t, err)
	second, err := p.Run(context.Background(), []Target{{URL: "https://shop.example/phones"}})
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	require.Len(t, first.Records, 1)
	require.Len(t, second.Records, 1)
	assert.Equal(t, first.Records[0].ID, second.Records[0].ID)
}

func TestRunWritesSnapshotAndPublishesEvent(t *testing.T) {
	store := memory.NewRecordStore(&seqIDGen{}, stubClock{now: time.Now()})
	fetcher := &stubFetcher{pages: map[string]string{
		"https://shop.example/phones": listingPage(card("/p/one.html", "Phone One", "1,299 MAD")),
	}}
	blobs := memory.NewBlobStore()
	pub := &capturingPublisher{}

	p := NewPipeline(
		store, fetcher, nil,
		NewExtractor(Selectors{}),
		NewRetryPolicy(1),
		stubClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		blobs, pub,
		PipelineConfig{
			Parallelism:    1,
			TargetTimeout:  time.Second,
			SnapshotPrefix: "runs",
			Topic:          "harvest-runs",
		},
		zap.NewNop(),
	)

	_, err := p.Run(context.Background(), []Target{{URL: "https://shop.example/phones"}})
	require.NoError(t, err)

	data, ok := blobs.Object("runs/run-1772355600.json")
	require.True(t, ok)
	assert.Contains(t, string(data), `"natural_key":"https://shop.example/p/one.html"`)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "harvest-runs", pub.topic)
}

type capturingPublisher struct {
	calls int
	topic string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, _ any) (string, error) {
	p.calls++
	p.topic = topic
	return "msg-1", nil
}
