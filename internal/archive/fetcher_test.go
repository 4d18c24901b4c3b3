package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"citecheck/internal/model"
	"citecheck/internal/worker"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      2 * time.Second,
		UserAgent:    "citecheck-test",
		MaxBodyBytes: 1 << 20,
		MaxRedirects: 3,
	}
}

func testLimiter() *worker.DomainLimiter {
	return worker.NewDomainLimiter(time.Millisecond, 5)
}

func newTestFetcher(minLen int) *Fetcher {
	f := NewFetcher(testHTTPConfig(), minLen, testLimiter())
	f.sleep = func(time.Duration) {}
	return f
}

const articleHTML = `<!doctype html>
<html><head><title>News</title><style>p{color:red}</style></head>
<body>
<script>var tracking = true;</script>
<h1>Man fatally shot during arrest</h1>
<p>AUSTIN, Texas. A man was fatally shot on June 10, 2025 during an
enforcement operation, witnesses said. Officials confirmed the shooting
occurred outside a courthouse downtown and that agents opened fire after
a confrontation. The incident remains under review by federal officials
and local investigators who arrived within minutes.</p>
</body></html>`

func TestFetcher_FetchText_HTMLReducedToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := newTestFetcher(50)
	text, err := f.FetchText(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if !strings.Contains(text, "fatally shot") {
		t.Errorf("text missing article content: %q", text)
	}
	if strings.Contains(text, "tracking") || strings.Contains(text, "color:red") {
		t.Errorf("script/style content leaked into text: %q", text)
	}
}

func TestFetcher_FetchText_Status404(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := newTestFetcher(50)
	_, err := f.FetchText(context.Background(), srv.URL+"/gone")
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Detail != "status 404" {
		t.Errorf("Detail = %q, want status 404", fe.Detail)
	}
}

func TestFetcher_FetchText_ShortContentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("too short"))
	}))
	defer srv.Close()

	f := newTestFetcher(200)
	_, err := f.FetchText(context.Background(), srv.URL+"/stub")
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if !strings.Contains(fe.Detail, "content too short") {
		t.Errorf("Detail = %q", fe.Detail)
	}
}

func TestFetcher_FetchText_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(strings.Repeat("recovered article body. ", 20)))
	}))
	defer srv.Close()

	f := newTestFetcher(50)
	text, err := f.FetchText(context.Background(), srv.URL+"/flaky")
	if err != nil {
		t.Fatalf("FetchText after retries: %v", err)
	}
	if !strings.Contains(text, "recovered") {
		t.Errorf("unexpected text: %q", text)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFetcher_FetchText_RobotsDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		_, _ = w.Write([]byte(strings.Repeat("should never be fetched. ", 20)))
	}))
	defer srv.Close()

	f := newTestFetcher(50)
	_, err := f.FetchText(context.Background(), srv.URL+"/private/doc")
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if !strings.Contains(fe.Detail, "robots.txt") {
		t.Errorf("Detail = %q", fe.Detail)
	}
}

func TestFetcher_FetchText_HonorsCrawlDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nCrawl-delay: 0.2\n"))
			return
		}
		_, _ = w.Write([]byte(strings.Repeat("article body text. ", 20)))
	}))
	defer srv.Close()

	f := NewFetcher(testHTTPConfig(), 50, worker.NewDomainLimiter(time.Millisecond, 1))
	f.sleep = func(time.Duration) {}

	ctx := context.Background()
	if _, err := f.FetchText(ctx, srv.URL+"/a"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	start := time.Now()
	if _, err := f.FetchText(ctx, srv.URL+"/b"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 120*time.Millisecond {
		t.Errorf("second same-domain fetch took %v, published crawl delay not applied", elapsed)
	}
}

func TestFetcher_FetchText_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testHTTPConfig()
	cfg.Timeout = 50 * time.Millisecond
	f := NewFetcher(cfg, 50, testLimiter())
	f.sleep = func(time.Duration) {}

	_, err := f.FetchText(context.Background(), srv.URL+"/slow")
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.Detail != "Timeout" {
		t.Errorf("Detail = %q, want Timeout", fe.Detail)
	}
}

func TestHTMLToText_CollapsesWhitespace(t *testing.T) {
	text := HTMLToText("<p>one   two</p>\n<p>three</p>")
	if !strings.Contains(text, "one two") || !strings.Contains(text, "three") {
		t.Errorf("HTMLToText = %q", text)
	}
}
