package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist-takvim/internal/config"
	"bist-takvim/internal/models"
)

const companyPage = `<html><body>
<table id="takvim">
  <tr class="olay"><td class="tarih">15.05.2025</td><td class="baslik">Olağan   Genel Kurul</td><td class="tur">Genel Kurul</td></tr>
  <tr class="olay"><td class="tarih"></td><td class="baslik">Temettü 10 Ağustos 2025</td><td class="tur"></td></tr>
  <tr class="olay"><td class="tarih">01.01.2025</td><td class="baslik"></td></tr>
</table>
</body></html>`

const newsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Piyasa</title>
<item><title>THYAO yeni uçak siparişi verdi</title><pubDate>Mon, 03 Mar 2025 10:00:00 +0000</pubDate></item>
<item><title>Piyasa özeti</title><description>&lt;p&gt;GARAN ve THYAO yükseldi&lt;/p&gt;</description><pubDate>Tue, 04 Mar 2025 10:00:00 +0000</pubDate></item>
<item><title>THYAOX duyurusu</title><pubDate>Wed, 05 Mar 2025 10:00:00 +0000</pubDate></item>
<item><title>AKBNK bilanço</title><pubDate>Wed, 05 Mar 2025 10:00:00 +0000</pubDate></item>
</channel></rss>`

func serve(t *testing.T, body, contentType string) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestHTMLSourceExtractsRows(t *testing.T) {
	srv, paths := serve(t, companyPage, "text/html; charset=utf-8")
	src := NewHTMLSource(config.SourceConfig{
		Name:             "kap",
		Kind:             "html",
		URL:              srv.URL + "/sirket/%s",
		ItemSelector:     "tr.olay",
		TitleSelector:    ".baslik",
		DateSelector:     ".tarih",
		CategorySelector: ".tur",
	}, srv.Client())

	records, err := src.Fetch(context.Background(), "THYAO")
	require.NoError(t, err)
	require.Equal(t, []string{"/sirket/THYAO"}, *paths)
	require.Len(t, records, 2)

	assert.Equal(t, models.RawRecord{
		Title:        "Olağan Genel Kurul",
		DateText:     "15.05.2025",
		CategoryHint: "Genel Kurul",
		SourceName:   "kap",
	}, records[0])
	assert.Equal(t, "Temettü 10 Ağustos 2025", records[1].DateText, "title doubles as date text")
}

func TestHTMLSourceReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewHTMLSource(config.SourceConfig{Name: "kap", URL: srv.URL, ItemSelector: "tr"}, srv.Client())
	_, err := src.Fetch(context.Background(), "THYAO")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFeedSourceKeepsMentions(t *testing.T) {
	srv, _ := serve(t, newsFeed, "application/rss+xml")
	src := NewFeedSource(config.SourceConfig{Name: "haber", Kind: "feed", URL: srv.URL}, srv.Client())

	records, err := src.Fetch(context.Background(), "THYAO")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "THYAO yeni uçak siparişi verdi", records[0].Title)
	assert.Equal(t, "2025-03-03", records[0].DateText)
	assert.Equal(t, "news", records[0].CategoryHint)
	assert.Equal(t, "Piyasa özeti", records[1].Title, "description mentions count")
}

func TestLimiterSpacesRequests(t *testing.T) {
	srv, paths := serve(t, newsFeed, "application/rss+xml")
	src := NewFeedSource(config.SourceConfig{Name: "haber", URL: srv.URL, MinInterval: 40 * time.Millisecond}, srv.Client())

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := src.Fetch(context.Background(), "GARAN")
		require.NoError(t, err)
	}
	assert.Len(t, *paths, 3)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestFromConfig(t *testing.T) {
	srcs, err := FromConfig([]config.SourceConfig{
		{Name: "kap", Kind: "html", Enabled: true},
		{Name: "off", Kind: "html"},
		{Name: "haber", Kind: "feed", Enabled: true},
	}, nil)
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, "kap", srcs[0].Name())
	assert.Equal(t, "haber", srcs[1].Name())

	_, err = FromConfig([]config.SourceConfig{{Name: "x", Kind: "ftp", Enabled: true}}, nil)
	assert.Error(t, err)
}

func TestMentions(t *testing.T) {
	assert.True(t, mentions("Bugün THYAO, GARAN yükseldi", "THYAO"))
	assert.True(t, mentions("(garan) bilanço", "GARAN"))
	assert.False(t, mentions("THYAOX duyurusu", "THYAO"))
	assert.False(t, mentions(strings.Repeat("x", 10), "THYAO"))
}
