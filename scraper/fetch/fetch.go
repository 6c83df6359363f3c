// Package fetch provides interchangeable HTTP backends for the portal scraper.
// Every backend keeps its own session cookies and returns decoded page text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ev-subsidy-scraper/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scraper/fetch")

// DefaultUserAgent is sent by every backend unless overridden
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Backend names accepted by New
const (
	BackendAuto     = "auto"
	BackendResty    = "resty"
	BackendColly    = "colly"
	BackendChromedp = "chromedp"
	BackendRod      = "rod"
)

// ErrStatus is wrapped when the server answers with a non-2xx status
var ErrStatus = errors.New("unexpected status")

// Request describes one page load. Form is sent url-encoded when Method is POST.
type Request struct {
	Method  string
	URL     string
	Form    map[string]string
	Headers map[string]string
}

// Fetcher loads pages while keeping session state between calls
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (string, error)
	Name() string
	Close() error
}

// Options configures a backend
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *utils.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Logger == nil {
		o.Logger = utils.Discard()
	}
	return o
}

// New creates the named backend. "auto" prefers a headless browser and falls
// back to plain HTTP when none can be started.
func New(backend string, opts Options) (Fetcher, error) {
	opts = opts.withDefaults()

	switch strings.ToLower(backend) {
	case "", BackendResty:
		return NewRestyFetcher(opts)
	case BackendColly:
		return NewCollyFetcher(opts)
	case BackendChromedp:
		return NewChromedpFetcher(opts)
	case BackendRod:
		return NewRodFetcher(opts)
	case BackendAuto:
		if f, err := NewChromedpFetcher(opts); err == nil {
			return f, nil
		} else {
			opts.Logger.Warn("chromedp unavailable: %v", err)
		}
		if f, err := NewRodFetcher(opts); err == nil {
			return f, nil
		} else {
			opts.Logger.Warn("rod unavailable: %v", err)
		}
		opts.Logger.Info("Falling back to plain HTTP session")
		return NewRestyFetcher(opts)
	default:
		return nil, fmt.Errorf("unknown fetch backend %q", backend)
	}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func startSpan(ctx context.Context, backend string, req Request) (context.Context, trace.Span) {
	return tracer.Start(ctx, "fetch "+req.method(), trace.WithAttributes(
		attribute.String("fetch.backend", backend),
		attribute.String("http.method", req.method()),
		attribute.String("http.url", req.URL),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func statusError(code int) error {
	return fmt.Errorf("%w: %d %s", ErrStatus, code, http.StatusText(code))
}
