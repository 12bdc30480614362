package fetcher

import (
	"context"
	"fmt"
	"time"

	"ipfeed/internal/shared/types"
)

// Fetcher 接口定义了从远程源获取原始文本的行为。
type Fetcher interface {
	// Fetch 对 url 执行 GET 并返回响应体。传输失败或非 2xx 状态返回 KindRetrieval 错误，
	// 调用方应跳过该源而不是终止运行。
	Fetch(ctx context.Context, url string) (string, error)

	// Name 返回抓取引擎的名称，用于日志记录。
	Name() string
}

// New 根据 [fetch] engine 构造对应的 Fetcher。
func New(fetchConf types.FetchConf, userAgent string) (Fetcher, error) {
	timeout := time.Duration(fetchConf.TimeoutSeconds) * time.Second
	switch fetchConf.Engine {
	case "", "http":
		return NewHTTPFetcher(timeout, userAgent, fetchConf.ProxyURL), nil
	case "colly":
		return NewCollyFetcher(timeout, userAgent, fetchConf.ProxyURL)
	default:
		return nil, fmt.Errorf("unknown fetch engine %q", fetchConf.Engine)
	}
}
