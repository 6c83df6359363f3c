package fetch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const rodFetchJS = `(target, method, headers, body) => fetch(target, {
	method: method,
	headers: headers,
	body: body || undefined,
	credentials: "include",
}).then(res => {
	if (!res.ok) throw new Error("HTTP " + res.status);
	return res.text();
})`

// RodFetcher loads pages through go-rod with a single reusable page
type RodFetcher struct {
	opts    Options
	browser *rod.Browser
	page    *rod.Page
	origin  string
}

// NewRodFetcher launches headless Chromium via the rod launcher
func NewRodFetcher(opts Options) (*RodFetcher, error) {
	opts = opts.withDefaults()

	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", "1280,900")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser, err := connectBrowser(controlURL, l.Kill)
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
		opts.Logger.Warn("rod: could not set user agent: %v", err)
	}

	return &RodFetcher{opts: opts, browser: browser, page: page}, nil
}

// connectBrowser attaches to a launched browser, killing it when the attach fails
func connectBrowser(controlURL string, kill func()) (*rod.Browser, error) {
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		kill()
		return nil, fmt.Errorf("failed to connect browser: %w", err)
	}
	return browser, nil
}

func (f *RodFetcher) Name() string { return BackendRod }

func (f *RodFetcher) Fetch(ctx context.Context, req Request) (body string, err error) {
	ctx, span := startSpan(ctx, f.Name(), req)
	defer func() { endSpan(span, err) }()

	page := f.page.Context(ctx).Timeout(f.opts.Timeout)

	if req.method() == "GET" && len(req.Headers) == 0 {
		if err := page.Navigate(req.URL); err != nil {
			return "", fmt.Errorf("navigate %s: %w", req.URL, err)
		}
		if err := page.WaitLoad(); err != nil {
			return "", fmt.Errorf("wait load %s: %w", req.URL, err)
		}
		f.origin = originOf(req.URL)
		return page.HTML()
	}

	if origin := originOf(req.URL); origin != f.origin {
		if err := page.Navigate(origin); err != nil {
			return "", fmt.Errorf("navigate %s: %w", origin, err)
		}
		if err := page.WaitLoad(); err != nil {
			return "", fmt.Errorf("wait load %s: %w", origin, err)
		}
		f.origin = origin
	}

	headers := map[string]string{}
	for k, v := range req.Headers {
		headers[k] = v
	}
	payload := ""
	if len(req.Form) > 0 {
		form := url.Values{}
		for k, v := range req.Form {
			form.Set(k, v)
		}
		payload = form.Encode()
		headers["Content-Type"] = "application/x-www-form-urlencoded; charset=UTF-8"
	}

	res, err := page.Eval(rodFetchJS, req.URL, req.method(), headers, payload)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", req.method(), req.URL, err)
	}
	return res.Value.Str(), nil
}

func (f *RodFetcher) Close() error {
	return f.browser.Close()
}
