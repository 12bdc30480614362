package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ipfeed/internal/shared/logger"
	"ipfeed/internal/shared/types"
	"ipfeed/pipeline/annotator"
	"ipfeed/pipeline/extractor"
	"ipfeed/pipeline/fetcher"
	"ipfeed/pipeline/model"
	"ipfeed/pipeline/probe"
	"ipfeed/pipeline/publisher"
)

// Components 是一次运行需要的各个阶段。
type Components struct {
	Fetcher   fetcher.Fetcher
	Annotator *annotator.Annotator
	Prober    *probe.Prober        // nil 表示不做可达性探测
	Publisher *publisher.Publisher // nil 表示 dry run，只输出内容
	closers   []io.Closer
}

// BuildComponents 根据配置构造所有阶段。dryRun 为 true 时不创建 Publisher。
func BuildComponents(cfg *types.Config, dryRun bool) (*Components, error) {
	l := logger.WithComponent("IPFeed/Manager")
	c := &Components{}

	f, err := fetcher.New(cfg.FetchConf, cfg.CommonConf.UserAgent)
	if err != nil {
		return nil, err
	}
	c.Fetcher = f

	var geo annotator.Geolocator
	if cfg.AnnotateConf.Enabled && cfg.AnnotateConf.Label == "" {
		geo, err = annotator.NewGeolocator(cfg.AnnotateConf, time.Duration(cfg.CommonConf.GeoTimeout)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to create geolocator: %w", err)
		}
		if closer, ok := geo.(io.Closer); ok {
			c.closers = append(c.closers, closer)
		}
		if cfg.AnnotateConf.Geo == "ipinfo" && cfg.AnnotateConf.IPInfoAuth == "" {
			l.Warn().Msg("IPINFO_TOKEN is not set, ipinfo lookups will be anonymous and rate limited.")
		}
	}
	c.Annotator = annotator.New(annotator.Options{
		Enabled:  cfg.AnnotateConf.Enabled,
		Prefix:   cfg.AnnotateConf.Prefix,
		Suffix:   cfg.AnnotateConf.Suffix,
		Label:    cfg.AnnotateConf.Label,
		OmitPort: cfg.AnnotateConf.OmitPort,
	}, geo)

	if cfg.ProbeConf.Enabled {
		p, err := probe.NewProber(time.Duration(cfg.ProbeConf.TimeoutSeconds)*time.Second, cfg.ProbeConf.Socks5)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Prober = p
	}

	if !dryRun {
		var store publisher.Store
		switch cfg.PublishConf.Target {
		case "file":
			store = publisher.NewFileStore(cfg.PublishConf.LocalDir)
		default:
			if cfg.PublishConf.Token == "" {
				l.Warn().Msg("No GitHub token found in environment, publishing will likely be rejected.")
			}
			gh, err := publisher.NewGitHubStore(cfg.PublishConf.Token, cfg.PublishConf.Repo, cfg.PublishConf.Branch)
			if err != nil {
				c.Close()
				return nil, err
			}
			store = gh
		}
		c.Publisher = publisher.New(store, cfg.PublishConf.Message)
	}

	return c, nil
}

// Close 释放需要关闭的资源（例如 GeoLite 数据库）。
func (c *Components) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

// Report 汇总一次运行的结果。
type Report struct {
	RunID       string
	Sources     int // 成功抓取的源数量
	Records     []model.Record
	Lines       []string
	Content     string
	Diagnostics []model.Diagnostic
	Publish     *publisher.Result // dry run 或跳过发布时为 nil
}

// Manager 顺序执行 抓取 -> 抽取 -> 去重/限制 -> 探测 -> 标注 -> 发布。
type Manager struct {
	cfg *types.Config
	c   *Components
	out io.Writer
}

// NewManager 创建流水线管理器。out 只在 dry run 时使用。
func NewManager(cfg *types.Config, c *Components, out io.Writer) *Manager {
	return &Manager{cfg: cfg, c: c, out: out}
}

// Run 执行一次完整的流水线。只有发布失败（以及上下文取消）会返回错误，
// 其余阶段的失败都记录在 Report.Diagnostics 中。
func (m *Manager) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	l := logger.WithComponent("IPFeed/Manager").With().Str("run_id", report.RunID).Logger()
	l.Info().Int("sources", len(m.cfg.Sources)).Str("fetcher", m.c.Fetcher.Name()).Msg("Starting run...")

	var records []model.Record
	for _, src := range m.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		l.Info().Str("source", src.Name).Str("url", src.URL).Msg("Downloading data from source...")
		body, err := m.c.Fetcher.Fetch(ctx, src.URL)
		if err != nil {
			l.Warn().Err(err).Str("source", src.Name).Msg("Source fetch failed, skipping.")
			report.Diagnostics = append(report.Diagnostics, model.Diagnostic{
				Stage:  "fetch",
				Source: src.Name,
				Reason: err.Error(),
			})
			continue
		}
		report.Sources++

		res := extractor.For(src).Extract(src.Name, body)
		records = append(records, res.Records...)
		report.Diagnostics = append(report.Diagnostics, res.Skipped...)
		l.Info().Str("source", src.Name).Int("count", len(res.Records)).Int("skipped", len(res.Skipped)).Msg("Source extracted.")
	}

	if m.cfg.CommonConf.Dedupe {
		before := len(records)
		records = model.Dedupe(records)
		l.Debug().Int("before", before).Int("after", len(records)).Msg("Deduplicated records.")
	}
	if total := m.cfg.CommonConf.TotalLimit; total > 0 && len(records) > total {
		records = records[:total]
	}
	if m.c.Prober != nil {
		kept, dropped := m.c.Prober.Filter(ctx, records)
		records = kept
		report.Diagnostics = append(report.Diagnostics, dropped...)
	}

	report.Records = records
	report.Lines = m.c.Annotator.Lines(ctx, records)
	report.Content = strings.Join(report.Lines, "\n")
	logDiagnostics(l, report.Diagnostics)

	if len(records) == 0 {
		if m.cfg.CommonConf.SkipEmpty {
			l.Warn().Msg("No records extracted, skipping publish.")
			return report, nil
		}
		l.Warn().Msg("No records extracted, publishing an empty list.")
	}

	if m.c.Publisher == nil {
		if report.Content != "" {
			fmt.Fprintln(m.out, report.Content)
		}
		l.Info().Int("records", len(records)).Msg("Dry run finished, nothing published.")
		return report, nil
	}

	res, err := m.c.Publisher.Publish(ctx, m.cfg.PublishConf.Path, report.Content)
	if err != nil {
		l.Error().Err(err).Str("path", m.cfg.PublishConf.Path).Msg("Upload failed.")
		return report, err
	}
	report.Publish = res
	l.Info().
		Str("action", res.Action).
		Str("path", res.Path).
		Str("version", res.Version).
		Int("records", len(records)).
		Msg("Upload completed.")
	return report, nil
}

func logDiagnostics(l zerolog.Logger, diags []model.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	byStage := make(map[string]int)
	for _, d := range diags {
		byStage[d.Stage]++
		l.Debug().
			Str("stage", d.Stage).
			Str("source", d.Source).
			Int("line", d.Line).
			Str("token", d.Token).
			Str("reason", d.Reason).
			Msg("Skipped.")
	}
	l.Info().
		Int("fetch", byStage["fetch"]).
		Int("extract", byStage["extract"]).
		Int("probe", byStage["probe"]).
		Msg("Diagnostics summary.")
}
