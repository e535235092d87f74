package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"bist-takvim/internal/config"
	"bist-takvim/internal/models"
	"bist-takvim/pkg/utils"
)

// HTMLSource scrapes event rows from a company page with CSS selectors.
type HTMLSource struct {
	cfg     config.SourceConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTMLSource creates an HTML scraping source.
func NewHTMLSource(cfg config.SourceConfig, client *http.Client) *HTMLSource {
	return &HTMLSource{
		cfg:     cfg,
		client:  client,
		limiter: newLimiter(cfg.MinInterval),
	}
}

// Name returns the source name.
func (s *HTMLSource) Name() string { return s.cfg.Name }

// Fetch downloads the page for symbol and extracts one record per item.
// Items without a title are skipped; the date is left for the normalizer.
func (s *HTMLSource) Fetch(ctx context.Context, symbol string) ([]models.RawRecord, error) {
	body, err := get(ctx, s.client, s.limiter, symbolURL(s.cfg.URL, symbol), "text/html")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s HTML: %w", s.cfg.Name, err)
	}

	return s.extract(doc), nil
}

func (s *HTMLSource) extract(doc *goquery.Document) []models.RawRecord {
	var records []models.RawRecord
	doc.Find(s.cfg.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		title := selectText(item, s.cfg.TitleSelector)
		if title == "" {
			return
		}

		hint := s.cfg.Category
		if s.cfg.CategorySelector != "" {
			if c := selectText(item, s.cfg.CategorySelector); c != "" {
				hint = c
			}
		}

		dateText := selectText(item, s.cfg.DateSelector)
		if dateText == "" {
			// Some pages only carry the date inside the title
			dateText = title
		}

		records = append(records, models.RawRecord{
			Title:        title,
			DateText:     dateText,
			CategoryHint: hint,
			SourceName:   s.cfg.Name,
		})
	})
	return records
}

// selectText returns the whitespace-normalized text under selector, or the
// item's own text when selector is empty.
func selectText(item *goquery.Selection, selector string) string {
	sel := item
	if selector != "" {
		sel = item.Find(selector).First()
	}
	return utils.NormalizeSpace(strings.TrimSpace(sel.Text()))
}
