package techdetect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func evidence(t *testing.T, html string, headers http.Header) *pageEvidence {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	if headers == nil {
		headers = http.Header{}
	}
	return &pageEvidence{html: strings.ToLower(html), doc: doc, headers: headers}
}

func TestFingerprintMatch(t *testing.T) {
	rules := []Fingerprint{
		{Name: "WordPress", Categories: []string{"cms"}, Confidence: 90, HTML: []string{"wp-content"}},
		{Name: "React", Categories: []string{"frontend"}, Confidence: 80, Selectors: []string{"[data-reactroot]", "#__next"}},
		{Name: "Nginx", Categories: []string{"server"}, Confidence: 95, Headers: map[string]string{"Server": "nginx"}},
		{Name: "Cloudflare", Categories: []string{"cdn"}, Confidence: 90, Headers: map[string]string{"Cf-Ray": ""}},
		{Name: "Hugo", Categories: []string{"static"}, Confidence: 85, MetaGenerator: "hugo"},
	}
	d := NewFingerprintDetector(rules, time.Second, zap.NewNop())

	t.Run("html marker", func(t *testing.T) {
		page := evidence(t, `<link href="/wp-content/themes/x/style.css">`, nil)
		detected := d.Match(page)
		require.Len(t, detected, 1)
		assert.Equal(t, "WordPress", detected[0].Name)
		assert.Equal(t, 90, detected[0].Confidence)
		assert.Equal(t, []string{"cms"}, detected[0].Categories)
	})

	t.Run("css selector", func(t *testing.T) {
		page := evidence(t, `<html><body><div id="__next"></div></body></html>`, nil)
		detected := d.Match(page)
		require.Len(t, detected, 1)
		assert.Equal(t, "React", detected[0].Name)
	})

	t.Run("header with value marker", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Server", "nginx/1.25.3")
		detected := d.Match(evidence(t, "<html></html>", headers))
		require.Len(t, detected, 1)
		assert.Equal(t, "Nginx", detected[0].Name)
	})

	t.Run("header presence only", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Cf-Ray", "8a1b2c3d4e5f-FRA")
		detected := d.Match(evidence(t, "<html></html>", headers))
		require.Len(t, detected, 1)
		assert.Equal(t, "Cloudflare", detected[0].Name)
	})

	t.Run("meta generator", func(t *testing.T) {
		page := evidence(t, `<html><head><meta name="generator" content="Hugo 0.121.0"></head></html>`, nil)
		detected := d.Match(page)
		require.Len(t, detected, 1)
		assert.Equal(t, "Hugo", detected[0].Name)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, d.Match(evidence(t, "<html><body>plain page</body></html>", nil)))
	})

	t.Run("marker matching is case insensitive", func(t *testing.T) {
		page := evidence(t, `<link href="/WP-CONTENT/style.css">`, nil)
		detected := d.Match(page)
		require.Len(t, detected, 1)
		assert.Equal(t, "WordPress", detected[0].Name)
	})
}

func TestDetect_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "nginx/1.25.3")
		_, _ = w.Write([]byte(`<html><head>
			<meta name="generator" content="WordPress 6.4">
			<link href="/wp-content/themes/x/style.css">
		</head><body></body></html>`))
	}))
	defer srv.Close()

	rules, err := DefaultFingerprints()
	require.NoError(t, err)
	d := NewFingerprintDetector(rules, time.Second, zap.NewNop())

	detected, err := d.Detect(context.Background(), srv.URL)
	require.NoError(t, err)

	names := make(map[string]bool, len(detected))
	for _, tech := range detected {
		names[tech.Name] = true
	}
	assert.True(t, names["WordPress"], "detected: %v", detected)
	assert.True(t, names["Nginx"], "detected: %v", detected)
}

func TestDetect_ErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewFingerprintDetector(nil, time.Second, zap.NewNop())

	_, err := d.Detect(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestDetect_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	d := NewFingerprintDetector(nil, time.Second, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := d.Detect(ctx, srv.URL)
	assert.Error(t, err)
}

func TestDefaultFingerprints(t *testing.T) {
	rules, err := DefaultFingerprints()
	require.NoError(t, err)
	assert.NotEmpty(t, rules)

	names := make(map[string]bool, len(rules))
	for _, rule := range rules {
		names[rule.Name] = true
		assert.Greater(t, rule.Confidence, 0, rule.Name)
		assert.LessOrEqual(t, rule.Confidence, 100, rule.Name)
	}
	for _, expected := range []string{"WordPress", "React", "Shopify", "Nginx", "Cloudflare"} {
		assert.True(t, names[expected], "missing built-in fingerprint %s", expected)
	}
}

func TestParseFingerprints_Validation(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		_, err := parseFingerprints([]byte("fingerprints:\n  - confidence: 50\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no name")
	})

	t.Run("confidence out of range", func(t *testing.T) {
		_, err := parseFingerprints([]byte("fingerprints:\n  - name: X\n    confidence: 101\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "confidence")
	})

	t.Run("not yaml", func(t *testing.T) {
		_, err := parseFingerprints([]byte("{{nope"))
		assert.Error(t, err)
	})
}
