// Package archive resolves the archived text backing a citation: a local
// plain-text snapshot when one exists, a bounded live fetch otherwise.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"

	"citecheck/internal/model"
	"citecheck/internal/worker"
)

const fetchMaxRetries = 3

// FetchError carries the short classification used in result error strings
// ("Timeout", "status 404", "content too short").
type FetchError struct {
	URL    string
	Detail string
	Err    error

	statusErr int // non-zero for HTTP status failures, drives retry decisions
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Detail)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher performs rate-limited, robots-respecting live fetches and reduces
// HTML bodies to plain text.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	minLen    int
	limiter   *worker.DomainLimiter

	robotsMu sync.Mutex
	robots   map[string]*robotstxt.RobotsData

	// sleep is swapped out in tests so retry backoff doesn't slow them down.
	sleep func(time.Duration)
}

// NewFetcher builds a fetcher from config. limiter may be shared with other
// components so all outbound traffic honors the same per-domain delays.
func NewFetcher(cfg model.HTTPConfig, minContentLen int, limiter *worker.DomainLimiter) *Fetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 3
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{Proxy: proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy)},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		minLen:    minContentLen,
		limiter:   limiter,
		robots:    make(map[string]*robotstxt.RobotsData),
		sleep:     time.Sleep,
	}
}

// FetchText retrieves the URL and returns its plain-text content. Transient
// failures (5xx, 429, timeouts, resets) are retried with exponential backoff.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	if allowed, err := f.robotsAllowed(ctx, rawURL); err == nil && !allowed {
		return "", &FetchError{URL: rawURL, Detail: "disallowed by robots.txt"}
	}

	var lastErr *FetchError
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		if attempt > 0 {
			f.sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}
		text, ferr := f.fetchOnce(ctx, rawURL)
		if ferr == nil {
			return text, nil
		}
		lastErr = ferr
		if !retryable(ferr) {
			break
		}
	}
	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (string, *FetchError) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return "", &FetchError{URL: rawURL, Detail: "Timeout", Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Detail: "invalid request", Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		detail := "request failed"
		if isTimeout(err) {
			detail = "Timeout"
		}
		return "", &FetchError{URL: rawURL, Detail: detail, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{URL: rawURL, Detail: fmt.Sprintf("status %d", resp.StatusCode), statusErr: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		detail := "read body"
		if isTimeout(err) {
			detail = "Timeout"
		}
		return "", &FetchError{URL: rawURL, Detail: detail, Err: err}
	}

	text := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "html") || looksLikeHTML(text) {
		text = HTMLToText(text)
	}
	text = strings.TrimSpace(text)

	if len(text) < f.minLen {
		return "", &FetchError{URL: rawURL, Detail: fmt.Sprintf("content too short (%d bytes)", len(text))}
	}
	return text, nil
}

// robotsAllowed consults the host's robots.txt, cached per host. A robots
// fetch failure is treated as allowed; politeness must not turn outages into
// verification errors.
func (f *Fetcher) robotsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false, fmt.Errorf("parse url: %w", err)
	}

	f.robotsMu.Lock()
	data, cached := f.robots[parsed.Host]
	f.robotsMu.Unlock()

	if !cached {
		robotsURL := parsed.Scheme + "://" + parsed.Host + "/robots.txt"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return true, nil
		}
		req.Header.Set("User-Agent", f.userAgent)
		resp, err := f.client.Do(req)
		if err != nil {
			return true, nil
		}
		func() {
			defer func() { _ = resp.Body.Close() }()
			data, err = robotstxt.FromResponse(resp)
		}()
		if err != nil {
			return true, nil
		}
		f.robotsMu.Lock()
		f.robots[parsed.Host] = data
		f.robotsMu.Unlock()

		// A published Crawl-delay overrides the configured per-domain delay.
		if f.limiter != nil && data != nil {
			if group := data.FindGroup(f.userAgent); group != nil && group.CrawlDelay > 0 {
				f.limiter.SetDomainDelay(parsed.Host, group.CrawlDelay)
			}
		}
	}

	if data == nil {
		return true, nil
	}
	group := data.FindGroup(f.userAgent)
	if group == nil {
		return true, nil
	}
	return group.Test(parsed.Path), nil
}

func retryable(e *FetchError) bool {
	if e.statusErr >= 500 || e.statusErr == 429 {
		return true
	}
	if e.Detail == "Timeout" {
		return true
	}
	if e.Err != nil {
		s := strings.ToLower(e.Err.Error())
		return strings.Contains(s, "connection refused") || strings.Contains(s, "connection reset")
	}
	return false
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// proxyFunc resolves the outbound proxy per request. Configured proxies take
// precedence over the HTTP_PROXY/HTTPS_PROXY environment.
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// HTMLToText walks the parsed document and collects visible text, skipping
// script and style subtrees. Whitespace runs collapse to single spaces with
// block elements becoming line breaks.
func HTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "tr":
				sb.WriteByte('\n')
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	lines := strings.Split(sb.String(), "\n")
	var out []string
	for _, line := range lines {
		if collapsed := strings.Join(strings.Fields(line), " "); collapsed != "" {
			out = append(out, collapsed)
		}
	}
	return strings.Join(out, "\n")
}
