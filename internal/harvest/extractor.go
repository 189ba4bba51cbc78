package harvest

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
)

// Selectors locate product-card fields in a listing page. The defaults match
// Jumia listing markup.
type Selectors struct {
	Card     string `mapstructure:"card"`
	Title    string `mapstructure:"title"`
	Price    string `mapstructure:"price"`
	Image    string `mapstructure:"image"`
	Link     string `mapstructure:"link"`
	Category string `mapstructure:"category"`
}

// DefaultSelectors returns the Jumia listing selectors.
func DefaultSelectors() Selectors {
	return Selectors{
		Card:  "article.prd",
		Title: "h3.name",
		Price: "div.prc",
		Image: "img.img",
		Link:  "a.core",
	}
}

// Extractor turns a listing page into draft records.
type Extractor struct {
	sel Selectors
}

// NewExtractor builds an Extractor, filling empty selectors with defaults.
func NewExtractor(sel Selectors) *Extractor {
	def := DefaultSelectors()
	if sel.Card == "" {
		sel.Card = def.Card
	}
	if sel.Title == "" {
		sel.Title = def.Title
	}
	if sel.Price == "" {
		sel.Price = def.Price
	}
	if sel.Image == "" {
		sel.Image = def.Image
	}
	if sel.Link == "" {
		sel.Link = def.Link
	}
	return &Extractor{sel: sel}
}

// Extract parses the page and returns one draft per product card. Cards
// without a resolvable product link produce drafts with an empty natural
// key; the pipeline discards those rather than failing the target.
func (e *Extractor) Extract(pageHTML []byte, sourcePage string) ([]catalog.Draft, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	base, err := url.Parse(sourcePage)
	if err != nil {
		return nil, fmt.Errorf("parse source page url: %w", err)
	}

	var drafts []catalog.Draft
	doc.Find(e.sel.Card).Each(func(_ int, card *goquery.Selection) {
		draft := catalog.Draft{
			Title:        strings.TrimSpace(card.Find(e.sel.Title).First().Text()),
			DisplayPrice: strings.TrimSpace(card.Find(e.sel.Price).First().Text()),
			SourcePage:   sourcePage,
		}
		if href, ok := card.Find(e.sel.Link).First().Attr("href"); ok {
			draft.NaturalKey = resolveRef(base, href)
		}
		img := card.Find(e.sel.Image).First()
		// Lazy-loaded listings keep the real image in data-src.
		if src, ok := img.Attr("data-src"); ok && src != "" {
			draft.ImageURL = src
		} else if src, ok := img.Attr("src"); ok {
			draft.ImageURL = src
		}
		if e.sel.Category != "" {
			draft.Category = strings.TrimSpace(card.Find(e.sel.Category).First().Text())
		}
		drafts = append(drafts, draft)
	})
	return drafts, nil
}

func resolveRef(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
