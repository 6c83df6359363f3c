package fetch

import (
	"context"
	"fmt"
	"net/http/cookiejar"

	"github.com/go-resty/resty/v2"
)

// RestyFetcher is a plain HTTP session with a cookie jar
type RestyFetcher struct {
	client *resty.Client
}

// NewRestyFetcher creates the default HTTP backend
func NewRestyFetcher(opts Options) (*RestyFetcher, error) {
	opts = opts.withDefaults()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")
	client.SetTimeout(opts.Timeout)

	return &RestyFetcher{client: client}, nil
}

func (f *RestyFetcher) Name() string { return BackendResty }

func (f *RestyFetcher) Fetch(ctx context.Context, req Request) (body string, err error) {
	ctx, span := startSpan(ctx, f.Name(), req)
	defer func() { endSpan(span, err) }()

	r := f.client.R().SetContext(ctx).SetHeaders(req.Headers)
	if len(req.Form) > 0 {
		r.SetFormData(req.Form)
	}

	res, err := r.Execute(req.method(), req.URL)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", req.method(), req.URL, err)
	}
	if res.IsError() {
		return "", statusError(res.StatusCode())
	}
	return res.String(), nil
}

func (f *RestyFetcher) Close() error { return nil }
