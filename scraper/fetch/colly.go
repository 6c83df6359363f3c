package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher drives a colly collector one request at a time
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a collector-backed fetcher
func NewCollyFetcher(opts Options) (*CollyFetcher, error) {
	opts = opts.withDefaults()

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(opts.UserAgent),
	)
	c.SetRequestTimeout(opts.Timeout)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c.SetCookieJar(jar)

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("body", string(r.Body))
	})
	c.OnRequest(func(r *colly.Request) {
		opts.Logger.Debug("colly %s %s", r.Method, r.URL)
	})

	return &CollyFetcher{collector: c}, nil
}

func (f *CollyFetcher) Name() string { return BackendColly }

func (f *CollyFetcher) Fetch(ctx context.Context, req Request) (body string, err error) {
	_, span := startSpan(ctx, f.Name(), req)
	defer func() { endSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	hdr := http.Header{}
	for k, v := range req.Headers {
		hdr.Set(k, v)
	}

	var payload *strings.Reader
	if len(req.Form) > 0 {
		form := url.Values{}
		for k, v := range req.Form {
			form.Set(k, v)
		}
		payload = strings.NewReader(form.Encode())
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		payload = strings.NewReader("")
	}

	cctx := colly.NewContext()
	if err := f.collector.Request(req.method(), req.URL, payload, cctx, hdr); err != nil {
		return "", fmt.Errorf("%s %s: %w", req.method(), req.URL, err)
	}
	return cctx.Get("body"), nil
}

func (f *CollyFetcher) Close() error { return nil }
