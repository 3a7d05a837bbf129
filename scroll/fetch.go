package scroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agiangrant/gallery/markup"
	"github.com/agiangrant/gallery/media"
)

// PagePlaceholder is replaced by the page number in fetch URL templates.
const PagePlaceholder = "{page}"

// maxPageBytes bounds a single page response.
const maxPageBytes = 8 << 20

// ErrNoPagePlaceholder is returned for a URL template without {page}.
var ErrNoPagePlaceholder = errors.New("scroll: url template has no " + PagePlaceholder)

// StatusError is a page response with an unexpected HTTP status.
type StatusError struct {
	Page       int
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scroll: page %d: %s returned %d %s",
		e.Page, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithMarkupOptions sets the class names used to find items in responses.
func WithMarkupOptions(o markup.Options) HTTPOption {
	return func(f *HTTPFetcher) { f.markup = o }
}

// WithFetchLogger sets the logger.
func WithFetchLogger(log *zap.Logger) HTTPOption {
	return func(f *HTTPFetcher) {
		if log != nil {
			f.log = log
		}
	}
}

// HTTPFetcher fetches pages of gallery markup over HTTP. 404 and 410 mean
// there are no more pages.
type HTTPFetcher struct {
	template string
	client   *http.Client
	markup   markup.Options
	log      *zap.Logger
}

// NewHTTPFetcher creates a fetcher for a URL template such as
// "https://example.com/album/page/{page}.html".
func NewHTTPFetcher(template string, opts ...HTTPOption) (*HTTPFetcher, error) {
	if !strings.Contains(template, PagePlaceholder) {
		return nil, ErrNoPagePlaceholder
	}
	if _, err := url.Parse(strings.ReplaceAll(template, PagePlaceholder, "1")); err != nil {
		return nil, fmt.Errorf("parse url template: %w", err)
	}
	f := &HTTPFetcher{
		template: template,
		client:   &http.Client{Timeout: 30 * time.Second},
		markup:   markup.DefaultOptions(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.Named("fetch")
	return f, nil
}

// URL returns the address of page.
func (f *HTTPFetcher) URL(page int) string {
	return strings.ReplaceAll(f.template, PagePlaceholder, strconv.Itoa(page))
}

// FetchPage implements Fetcher.
func (f *HTTPFetcher) FetchPage(ctx context.Context, page int) ([]media.Item, error) {
	u := f.URL(page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for page %d: %w", page, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		f.log.Debug("page not found; treating as end",
			zap.Int("page", page), zap.String("request_id", reqID))
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Page: page, StatusCode: resp.StatusCode, URL: u}
	}

	doc, err := markup.Parse(io.LimitReader(resp.Body, maxPageBytes), f.markup)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	for _, p := range doc.Problems {
		f.log.Warn("malformed item in page",
			zap.Int("page", page), zap.String("request_id", reqID), zap.Error(p))
	}
	return doc.Items, nil
}
