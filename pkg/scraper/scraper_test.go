package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrape(t *testing.T) {
	s := NewHTTPScraper(time.Second, zap.NewNop())

	t.Run("title and meta description", func(t *testing.T) {
		srv := serve(t, `<html><head>
			<title>InvoiceHero - Invoicing for freelancers</title>
			<meta name="description" content="Send invoices in seconds.">
		</head></html>`)

		meta, err := s.Scrape(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "InvoiceHero - Invoicing for freelancers", meta.Title)
		assert.Equal(t, "Send invoices in seconds.", meta.Description)
		assert.True(t, meta.HasContent())
	})

	t.Run("og description fallback", func(t *testing.T) {
		srv := serve(t, `<html><head>
			<meta property="og:description" content="From the open graph.">
		</head></html>`)

		meta, err := s.Scrape(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "From the open graph.", meta.Description)
	})

	t.Run("bare page has no content", func(t *testing.T) {
		srv := serve(t, `<html><body>hello</body></html>`)

		meta, err := s.Scrape(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.False(t, meta.HasContent())
	})

	t.Run("error status fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "blocked", http.StatusForbidden)
		}))
		t.Cleanup(srv.Close)

		_, err := s.Scrape(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 403")
	})

	t.Run("unreachable host fails", func(t *testing.T) {
		_, err := s.Scrape(context.Background(), "http://127.0.0.1:1")
		assert.Error(t, err)
	})
}
