package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"ipfeed/internal/shared/errors"
	"ipfeed/internal/shared/logger"
)

// HTTPFetcher 使用 net/http 抓取源。
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher 创建一个新的 HTTPFetcher。proxyURLStr 非空时所有请求经由该代理发出。
func NewHTTPFetcher(timeout time.Duration, userAgent, proxyURLStr string) *HTTPFetcher {
	l := logger.WithComponent("IPFeed/Fetcher")
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURLStr != "" {
		proxyURL, err := url.Parse(proxyURLStr)
		if err != nil {
			l.Error().Err(err).Str("proxy_url", proxyURLStr).Msg("Invalid proxy URL, falling back to direct connection.")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			l.Info().Str("proxy_url", proxyURLStr).Msg("Fetcher will use a forward proxy.")
		}
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Name() string {
	return "http"
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (string, error) {
	l := logger.WithComponent("IPFeed/Fetcher")
	l.Debug().Str("url", target).Msg("Fetching source...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", errors.New(errors.KindRetrieval, "failed to create request").AtSource(target).Base(err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.New(errors.KindRetrieval, "failed to fetch").AtSource(target).Base(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.New(errors.KindRetrieval, "received non-2xx status code ", resp.StatusCode).AtSource(target)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.New(errors.KindRetrieval, "failed to read body").AtSource(target).Base(err)
	}

	l.Debug().Str("url", target).Int("bytes", len(body)).Msg("Source fetched.")
	return string(body), nil
}
