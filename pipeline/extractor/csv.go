package extractor

import (
	"encoding/csv"
	stderrors "errors"
	"strings"

	"ipfeed/internal/shared/errors"
	"ipfeed/internal/shared/logger"
	"ipfeed/pipeline/model"
)

// CSVExtractor 从 CSV 的第一列抽取 "address[:port]"。
type CSVExtractor struct {
	limit       int
	strict      bool
	defaultPort string
}

// NewCSVExtractor 创建一个新的 CSVExtractor。limit <= 0 表示不限制数量。
func NewCSVExtractor(limit int, strict bool, defaultPort string) *CSVExtractor {
	return &CSVExtractor{limit: limit, strict: strict, defaultPort: defaultPort}
}

func (e *CSVExtractor) Extract(source, body string) Result {
	l := logger.WithComponent("IPFeed/Extractor")
	var res Result

	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if e.limit > 0 && len(res.Records) >= e.limit {
			break
		}
		lineNum := i + 1
		if i == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		r := csv.NewReader(strings.NewReader(line))
		r.LazyQuotes = true
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		fields, err := r.Read()
		if err != nil {
			l.Warn().Err(err).Str("source", source).Int("line", lineNum).Msg("Malformed CSV row, skipping.")
			res.Skipped = append(res.Skipped, skip(source, lineNum, line, errors.New(errors.KindParse, "malformed csv row").Base(err)))
			continue
		}

		token := strings.TrimSpace(fields[0])
		rec, err := parseToken(token, e.defaultPort, e.strict)
		if err != nil {
			if stderrors.Is(err, errNotIPv4Shape) {
				l.Debug().Str("source", source).Int("line", lineNum).Str("token", token).Msg("Not an IPv4 row, skipping.")
			} else {
				l.Warn().Err(err).Str("source", source).Int("line", lineNum).Str("token", token).Msg("Failed to parse address, skipping row.")
			}
			res.Skipped = append(res.Skipped, skip(source, lineNum, token, err))
			continue
		}
		rec.Source = source
		res.Records = append(res.Records, rec)
	}

	l.Debug().Str("source", source).Int("count", len(res.Records)).Int("skipped", len(res.Skipped)).Msg("CSV extraction finished.")
	return res
}

func skip(source string, line int, token string, err error) model.Diagnostic {
	return model.Diagnostic{
		Stage:  "extract",
		Source: source,
		Line:   line,
		Token:  token,
		Reason: err.Error(),
	}
}
