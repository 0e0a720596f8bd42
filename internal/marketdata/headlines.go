package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/alphapredict/pkg/models"
)

// fetchHeadlines reads the ticker's RSS headline feed. Callers treat any
// error as "no headlines".
func (f *Fetcher) fetchHeadlines(ctx context.Context, symbol string) ([]models.Headline, error) {
	if f.headlinesURL == "" || f.maxHeadlines <= 0 {
		return nil, nil
	}
	if f.client.Limiter != nil {
		if err := f.client.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	feedURL := fmt.Sprintf(f.headlinesURL, url.QueryEscape(symbol))
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", symbol, err)
	}

	out := make([]models.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := cleanHTML(item.Title)
		if title == "" {
			continue
		}
		h := models.Headline{Title: title, URL: item.Link}
		if item.PublishedParsed != nil {
			h.PublishedAt = item.PublishedParsed.UTC()
		}
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > f.maxHeadlines {
		out = out[:f.maxHeadlines]
	}
	return out, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
