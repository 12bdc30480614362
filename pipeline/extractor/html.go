package extractor

import (
	stderrors "errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ipfeed/internal/shared/errors"
	"ipfeed/internal/shared/logger"
)

// HTMLExtractor 把页面中的逗号分隔列表解析为记录。
// selector 为空时整个响应体就是列表；否则取第一个匹配元素的文本。
type HTMLExtractor struct {
	selector    string
	limit       int
	strict      bool
	defaultPort string
}

// NewHTMLExtractor 创建一个新的 HTMLExtractor。limit <= 0 表示不限制数量。
func NewHTMLExtractor(selector string, limit int, strict bool, defaultPort string) *HTMLExtractor {
	return &HTMLExtractor{selector: selector, limit: limit, strict: strict, defaultPort: defaultPort}
}

func (e *HTMLExtractor) Extract(source, body string) Result {
	l := logger.WithComponent("IPFeed/Extractor")
	var res Result

	text := body
	if e.selector != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			l.Warn().Err(err).Str("source", source).Msg("Failed to parse HTML document.")
			res.Skipped = append(res.Skipped, skip(source, 0, "", errors.New(errors.KindParse, "failed to parse html").Base(err)))
			return res
		}
		container := doc.Find(e.selector).First()
		if container.Length() == 0 {
			l.Warn().Str("source", source).Str("selector", e.selector).Msg("Container element not found.")
			res.Skipped = append(res.Skipped, skip(source, 0, e.selector, errors.New(errors.KindParse, "no element matches selector ", e.selector)))
			return res
		}
		text = container.Text()
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
tokens:
	for i, line := range lines {
		for _, token := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == '\r' }) {
			if e.limit > 0 && len(res.Records) >= e.limit {
				break tokens
			}
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}

			rec, err := parseToken(token, e.defaultPort, e.strict)
			if err != nil {
				if stderrors.Is(err, errNotIPv4Shape) {
					l.Debug().Str("source", source).Int("line", i+1).Str("token", token).Msg("Not an IPv4 token, skipping.")
				} else {
					l.Warn().Err(err).Str("source", source).Int("line", i+1).Str("token", token).Msg("Failed to parse address, skipping token.")
				}
				// 行号相对于列表文本（有 selector 时是容器元素的文本）
				res.Skipped = append(res.Skipped, skip(source, i+1, token, err))
				continue
			}
			rec.Source = source
			res.Records = append(res.Records, rec)
		}
	}

	l.Debug().Str("source", source).Int("count", len(res.Records)).Int("skipped", len(res.Skipped)).Msg("HTML extraction finished.")
	return res
}
