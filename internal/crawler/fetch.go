package crawler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
)

// Fetcher retrieves the HTML of a page. Any failure, including a non-HTML
// response, is an error wrapping ErrFetchFailed.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (string, error)
}

// HTTPFetcher follows redirects itself so the hop count is bounded by
// MaxRedirects rather than net/http's default of ten.
type HTTPFetcher struct {
	client       *http.Client
	maxRedirects int
	userAgent    string
	maxBodyBytes int64
}

func NewHTTPFetcher(cfg config.CrawlConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxRedirects: cfg.MaxRedirects,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: maxBody,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) (string, error) {
	current := u
	for redirects := 0; ; redirects++ {
		resp, err := f.get(ctx, current)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", apperrors.ErrFetchFailed, current, err)
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			drain(resp)
			if redirects >= f.maxRedirects {
				return "", fmt.Errorf("%w: %s: too many redirects", apperrors.ErrFetchFailed, u)
			}
			next, err := current.Parse(location)
			if location == "" || err != nil {
				return "", fmt.Errorf("%w: %s: bad redirect location %q", apperrors.ErrFetchFailed, current, location)
			}
			current = next
			continue
		}

		defer drain(resp)
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%w: %s: status %d", apperrors.ErrFetchFailed, current, resp.StatusCode)
		}
		if !isHTML(resp.Header.Get("Content-Type")) {
			return "", fmt.Errorf("%w: %s: content type %q", apperrors.ErrFetchFailed, current, resp.Header.Get("Content-Type"))
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %w", apperrors.ErrFetchFailed, current, err)
		}
		return string(body), nil
	}
}

func (f *HTTPFetcher) get(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	return f.client.Do(req)
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400 && status != http.StatusNotModified
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
