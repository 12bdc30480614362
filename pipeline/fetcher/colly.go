package fetcher

import (
	"context"
	"time"

	"github.com/gocolly/colly/v2"

	"ipfeed/internal/shared/errors"
	"ipfeed/internal/shared/logger"
)

// CollyFetcher 使用 colly collector 抓取源。
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher 创建一个新的 CollyFetcher。同一个 URL 允许在多次运行中重复访问。
func NewCollyFetcher(timeout time.Duration, userAgent, proxyURL string) (*CollyFetcher, error) {
	// 状态码由 OnResponse 自己判断，与 HTTPFetcher 一样接受所有 2xx。
	opts := []colly.CollectorOption{colly.AllowURLRevisit(), colly.ParseHTTPErrorResponse()}
	if userAgent != "" {
		opts = append(opts, colly.UserAgent(userAgent))
	}
	c := colly.NewCollector(opts...)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if proxyURL != "" {
		if err := c.SetProxy(proxyURL); err != nil {
			return nil, err
		}
	}

	return &CollyFetcher{collector: c}, nil
}

func (f *CollyFetcher) Name() string {
	return "colly"
}

// Fetch 在一个克隆的 collector 上同步访问 target，回调只对本次调用生效。
func (f *CollyFetcher) Fetch(ctx context.Context, target string) (string, error) {
	l := logger.WithComponent("IPFeed/Fetcher")
	if err := ctx.Err(); err != nil {
		return "", errors.New(errors.KindRetrieval, "fetch cancelled").AtSource(target).Base(err)
	}

	c := f.collector.Clone()

	var body []byte
	var scrapeErr error

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			scrapeErr = errors.New(errors.KindRetrieval, "received non-2xx status code ", r.StatusCode).AtSource(target)
			return
		}
		body = r.Body
	})

	c.OnError(func(r *colly.Response, err error) {
		l.Debug().Err(err).Int("status_code", r.StatusCode).Str("url", target).Msg("Colly request failed.")
		scrapeErr = errors.New(errors.KindRetrieval, "request failed").AtSource(target).Base(err)
	})

	if err := c.Visit(target); err != nil && scrapeErr == nil {
		scrapeErr = errors.New(errors.KindRetrieval, "failed to visit").AtSource(target).Base(err)
	}
	c.Wait()

	if scrapeErr != nil {
		return "", scrapeErr
	}
	return string(body), nil
}
