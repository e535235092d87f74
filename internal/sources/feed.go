package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/config"
	"bist-takvim/internal/models"
	"bist-takvim/pkg/utils"
)

// FeedSource reads an RSS or Atom feed and keeps the items that mention the
// symbol.
type FeedSource struct {
	cfg     config.SourceConfig
	client  *http.Client
	limiter *rate.Limiter
	parser  *gofeed.Parser
}

// NewFeedSource creates a feed source.
func NewFeedSource(cfg config.SourceConfig, client *http.Client) *FeedSource {
	return &FeedSource{
		cfg:     cfg,
		client:  client,
		limiter: newLimiter(cfg.MinInterval),
		parser:  gofeed.NewParser(),
	}
}

// Name returns the source name.
func (s *FeedSource) Name() string { return s.cfg.Name }

// Fetch parses the feed and returns one record per matching item.
func (s *FeedSource) Fetch(ctx context.Context, symbol string) ([]models.RawRecord, error) {
	body, err := get(ctx, s.client, s.limiter, symbolURL(s.cfg.URL, symbol),
		"application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := s.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", s.cfg.Name, err)
	}

	return s.extract(feed, symbol), nil
}

func (s *FeedSource) extract(feed *gofeed.Feed, symbol string) []models.RawRecord {
	var records []models.RawRecord
	for _, item := range feed.Items {
		title := utils.NormalizeSpace(item.Title)
		if title == "" {
			continue
		}
		if !mentions(title+" "+cleanHTML(item.Description)+" "+strings.Join(item.Categories, " "), symbol) {
			continue
		}

		dateText := item.Published
		if item.PublishedParsed != nil {
			dateText = clock.FormatDate(*item.PublishedParsed)
		} else if dateText == "" && item.UpdatedParsed != nil {
			dateText = clock.FormatDate(*item.UpdatedParsed)
		}

		hint := s.cfg.Category
		if hint == "" {
			hint = string(models.EventNews)
		}

		records = append(records, models.RawRecord{
			Title:        title,
			DateText:     dateText,
			CategoryHint: hint,
			SourceName:   s.cfg.Name,
		})
	}
	return records
}

// mentions reports whether text names symbol as a whole word.
func mentions(text, symbol string) bool {
	for _, field := range strings.FieldsFunc(strings.ToUpper(text), isSeparator) {
		if field == symbol {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

// cleanHTML strips markup from a feed description.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
