package extractor

import (
	stderrors "errors"
	"net"
	"strconv"
	"strings"

	"ipfeed/internal/shared/errors"
	"ipfeed/internal/shared/types"
	"ipfeed/pipeline/model"
)

// errNotIPv4Shape 表示严格模式下被静默丢弃的 token。
var errNotIPv4Shape = stderrors.New("token does not look like an IPv4 address")

// Result 是一次抽取的结果：成功的记录和每个被跳过的行的原因。
type Result struct {
	Records []model.Record
	Skipped []model.Diagnostic
}

// Extractor 接口定义了把源的原始文本解析为记录的行为。
type Extractor interface {
	Extract(source, body string) Result
}

// For 根据源的 kind 选择抽取器。
func For(src types.SourceConf) Extractor {
	port := src.DefaultPort
	if port == "" {
		port = model.DefaultPort
	}
	if src.Kind == "html" {
		return NewHTMLExtractor(src.Selector, src.Limit, src.Strict, port)
	}
	return NewCSVExtractor(src.Limit, src.Strict, port)
}

// parseToken 把 "address[:port]" 规范化为一条记录。
func parseToken(token, defaultPort string, strict bool) (model.Record, error) {
	if token == "" {
		return model.Record{}, errors.New(errors.KindParse, "empty address")
	}

	host, port, err := splitAddressPort(token, defaultPort)
	if err != nil {
		return model.Record{}, err
	}
	if strict && strings.Count(host, ".") != 3 {
		return model.Record{}, errNotIPv4Shape
	}
	return model.Record{Address: host, Port: port}, nil
}

// splitAddressPort 按最右侧的冒号拆分端口。"[v6]:port" 交给 net.SplitHostPort，
// 不带括号的多冒号 token 视为没有端口的 IPv6 地址。
func splitAddressPort(token, defaultPort string) (string, string, error) {
	var host, port string
	switch {
	case strings.HasPrefix(token, "["):
		if strings.HasSuffix(token, "]") {
			host, port = strings.Trim(token, "[]"), defaultPort
			break
		}
		h, p, err := net.SplitHostPort(token)
		if err != nil {
			return "", "", errors.New(errors.KindParse, "malformed bracketed address").Base(err)
		}
		host, port = h, p
	case strings.Count(token, ":") == 1:
		i := strings.LastIndex(token, ":")
		host, port = token[:i], token[i+1:]
	default:
		host, port = token, defaultPort
	}

	if host == "" {
		return "", "", errors.New(errors.KindParse, "missing address")
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", "", errors.New(errors.KindParse, "invalid port ", strconv.Quote(port))
	}
	return host, port, nil
}
