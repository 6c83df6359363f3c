package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromedpFetcher loads pages in one headless Chrome tab. POSTs are issued with
// an in-page fetch() so the browser's cookies and origin are used.
type ChromedpFetcher struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
	origin string
}

// NewChromedpFetcher starts a headless Chrome and keeps it for the fetcher's lifetime
func NewChromedpFetcher(opts Options) (*ChromedpFetcher, error) {
	opts = opts.withDefaults()
	ctx, cancel := newBrowserContext(opts.UserAgent)

	// an empty Run launches the browser so a missing Chrome is reported here
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}
	return &ChromedpFetcher{opts: opts, ctx: ctx, cancel: cancel}, nil
}

// newBrowserContext creates a chromedp context (one browser, one tab)
func newBrowserContext(userAgent string) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"), // suppress Chrome logs
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1280, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}
	return ctx, cancel
}

func (f *ChromedpFetcher) Name() string { return BackendChromedp }

// requestContext derives a tab context bounded by the timeout and by the caller's ctx
func (f *ChromedpFetcher) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(f.ctx, f.opts.Timeout)
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

func (f *ChromedpFetcher) Fetch(ctx context.Context, req Request) (body string, err error) {
	ctx, span := startSpan(ctx, f.Name(), req)
	defer func() { endSpan(span, err) }()

	tctx, cancel := f.requestContext(ctx)
	defer cancel()

	if req.method() == "GET" && len(req.Headers) == 0 {
		err = chromedp.Run(tctx,
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &body, chromedp.ByQuery),
		)
		if err != nil {
			return "", fmt.Errorf("navigate %s: %w", req.URL, err)
		}
		f.origin = originOf(req.URL)
		return body, nil
	}

	// fetch() needs a document on the same origin for cookies to apply
	if origin := originOf(req.URL); origin != f.origin {
		if err := chromedp.Run(tctx, chromedp.Navigate(origin)); err != nil {
			return "", fmt.Errorf("navigate %s: %w", origin, err)
		}
		f.origin = origin
	}

	script, err := fetchScript(req)
	if err != nil {
		return "", err
	}
	err = chromedp.Run(tctx, chromedp.Evaluate(script, &body, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", req.method(), req.URL, err)
	}
	return body, nil
}

func (f *ChromedpFetcher) Close() error {
	f.cancel()
	return nil
}

// fetchScript renders an async fetch() call that resolves to the response text
func fetchScript(req Request) (string, error) {
	form := url.Values{}
	for k, v := range req.Form {
		form.Set(k, v)
	}
	// the browser drops Referer and Origin from fetch headers; the referrer goes in init
	headers := map[string]string{}
	referrer := ""
	for k, v := range req.Headers {
		switch http.CanonicalHeaderKey(k) {
		case "Referer":
			referrer = v
		case "Origin":
		default:
			headers[k] = v
		}
	}
	init := map[string]interface{}{
		"method":      req.method(),
		"headers":     headers,
		"credentials": "include",
	}
	if referrer != "" {
		init["referrer"] = referrer
	}
	if len(req.Form) > 0 {
		headers["Content-Type"] = "application/x-www-form-urlencoded; charset=UTF-8"
		init["body"] = form.Encode()
	}

	target, err := json.Marshal(req.URL)
	if err != nil {
		return "", err
	}
	initJSON, err := json.Marshal(init)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(async () => {
	const res = await fetch(%s, %s);
	if (!res.ok) throw new Error("HTTP " + res.status);
	return await res.text();
})()`, target, initJSON), nil
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host, "/") + "/"
}
