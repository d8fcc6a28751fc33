package upstream

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/course-watcher/internal/model"
)

const (
	queryPagePath   = "/course10.asp"
	querySubmitPath = "/course11.asp"
)

// categoryParams maps the user-facing category names to the form value the
// upstream query endpoint expects.
var categoryParams = map[string]string{
	"通識": "07:通識",
	"體育": "05:體育",
}

// ValidCategory reports whether the given category is one the upstream
// system can be queried for.
func ValidCategory(category string) bool {
	_, ok := categoryParams[category]
	return ok
}

// Categories returns the supported category names for help text.
func Categories() []string {
	return []string{"體育", "通識"}
}

// listingMarkers are content-shape checks: a response is only accepted as a
// course listing when at least one of these appears in the decoded body.
var listingMarkers = []string{
	"<TABLE BORDER=1>",
	`<table border="1">`,
	"選課編號",
	"科目代碼",
}

// Fetcher retrieves category listing pages over the authenticated session
// and extracts individual course records from them.
type Fetcher struct {
	session    *Session
	baseURL    string
	year       string
	semester   string
	maxRetries int
	retryDelay time.Duration
}

// FetcherOptions configures NewFetcher. Zero values fall back to defaults.
type FetcherOptions struct {
	BaseURL    string
	Year       string        // academic year form value, e.g. "114"
	Semester   string        // semester form value, e.g. "1"
	MaxRetries int           // default 3
	RetryDelay time.Duration // fixed delay between attempts, default 1s
}

// NewFetcher binds a Fetcher to an existing session.
func NewFetcher(session *Session, opts FetcherOptions) *Fetcher {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Year == "" {
		opts.Year = "114"
	}
	if opts.Semester == "" {
		opts.Semester = "1"
	}
	return &Fetcher{
		session:    session,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		year:       opts.Year,
		semester:   opts.Semester,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

// FetchCategory retrieves the raw listing page for one category. It requires
// an active session and retries transient failures up to maxRetries times
// with a short fixed delay; the upstream tends to be flaky rather than down,
// so exponential backoff buys nothing here. Two submission strategies are
// tried per attempt and the first response passing the content-shape check
// wins.
func (f *Fetcher) FetchCategory(ctx context.Context, category string) (string, error) {
	param, ok := categoryParams[category]
	if !ok {
		return "", fmt.Errorf("unknown category %q", category)
	}
	if err := f.session.EnsureActive(ctx); err != nil {
		return "", err
	}

	form := url.Values{
		"syear":   {f.year},
		"smester": {f.semester},
		"cour":    {param},
	}

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		content, err := f.tryOnce(ctx, form)
		if err == nil {
			return content, nil
		}
		lastErr = err
		log.Printf("fetcher: listing attempt %d/%d for %s failed: %v", attempt+1, f.maxRetries, category, err)
		if attempt < f.maxRetries-1 {
			select {
			case <-time.After(f.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("fetch aborted: %w", ctx.Err())
			}
		}
	}
	return "", fmt.Errorf("no usable listing after %d attempts: %w (%v)", f.maxRetries, ErrNetwork, lastErr)
}

// tryOnce primes the query page to pick up any per-visit state, then runs
// both submission strategies in order.
func (f *Fetcher) tryOnce(ctx context.Context, form url.Values) (string, error) {
	// The upstream sets navigation state when the query page is visited;
	// posting without priming it yields an empty frame.
	if _, err := f.get(ctx, f.baseURL+queryPagePath); err != nil {
		return "", err
	}

	content, err := f.post(ctx, f.baseURL+querySubmitPath, form)
	if err == nil && looksLikeListing(content) {
		return content, nil
	}

	// Fallback: some deployments only answer on the query page itself with
	// an explicit submit field.
	alt := url.Values{}
	for k, v := range form {
		alt[k] = v
	}
	alt.Set("Submit", "查詢")
	content2, err2 := f.post(ctx, f.baseURL+queryPagePath, alt)
	if err2 == nil && looksLikeListing(content2) {
		return content2, nil
	}

	if err == nil {
		err = fmt.Errorf("response did not look like a listing: %w", ErrNetwork)
	}
	if err2 != nil {
		err = fmt.Errorf("%v; fallback: %v", err, err2)
	}
	return "", err
}

// Extract scans a raw listing page for the row matching courseID. It simply
// delegates to the package-level extraction strategies; having it on the
// Fetcher lets callers depend on a single interface for both steps.
func (f *Fetcher) Extract(content, courseID string) (model.CourseRecord, error) {
	return Extract(content, courseID)
}

func looksLikeListing(content string) bool {
	for _, m := range listingMarkers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.session.Client().Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w: %v", rawURL, ErrNetwork, err)
	}
	return readDecoded(resp)
}

func (f *Fetcher) post(ctx context.Context, rawURL string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := f.session.Client().Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w: %v", rawURL, ErrNetwork, err)
	}
	return readDecoded(resp)
}
