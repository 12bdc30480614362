package annotator

import (
	"context"
	"fmt"
	"net"
	"time"

	"ipfeed/internal/shared/logger"
	"ipfeed/internal/shared/types"
	"ipfeed/pipeline/model"
)

// UnknownLabel 是地理位置查询失败时使用的标签。
const UnknownLabel = "Unknown"

// Geolocator 查询一个地址所属的国家代码。
type Geolocator interface {
	Country(ctx context.Context, ip string) (string, error)
	Name() string
}

// Options 控制每一行的格式。
type Options struct {
	Enabled  bool
	Prefix   string
	Suffix   string
	Label    string // 静态标签，非空时不查询 Geolocator
	OmitPort bool
}

// Annotator 把记录格式化为 "address:port#<prefix><label><suffix>"。
// 查询是同步、逐条进行的，同一地址在一次运行中只查询一次。
type Annotator struct {
	opts  Options
	geo   Geolocator
	cache map[string]string
}

// New 创建一个新的 Annotator。geo 可以为 nil，此时标签为空（或静态标签）。
func New(opts Options, geo Geolocator) *Annotator {
	return &Annotator{
		opts:  opts,
		geo:   geo,
		cache: make(map[string]string),
	}
}

// NewGeolocator 根据 [annotate] geo 构造地理位置查询后端，"none" 或空返回 nil。
func NewGeolocator(conf types.AnnotateConf, timeout time.Duration) (Geolocator, error) {
	switch conf.Geo {
	case "", "none":
		return nil, nil
	case "ipinfo":
		return NewIPInfo(conf.IPInfoURL, conf.IPInfoAuth, timeout), nil
	case "geolite":
		g, err := OpenGeoLite(conf.GeoLiteDB)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown geo backend %q", conf.Geo)
	}
}

// Line 格式化单条记录，永远不会失败。
func (a *Annotator) Line(ctx context.Context, rec model.Record) string {
	// 关闭标注时只输出地址本身
	if !a.opts.Enabled {
		return rec.Address
	}
	base := rec.Address
	if !a.opts.OmitPort {
		base = net.JoinHostPort(rec.Address, rec.Port)
	}
	return base + "#" + a.opts.Prefix + a.label(ctx, rec.Address) + a.opts.Suffix
}

// Lines 按顺序格式化所有记录。
func (a *Annotator) Lines(ctx context.Context, recs []model.Record) []string {
	lines := make([]string, 0, len(recs))
	for _, rec := range recs {
		lines = append(lines, a.Line(ctx, rec))
	}
	return lines
}

func (a *Annotator) label(ctx context.Context, ip string) string {
	if a.opts.Label != "" {
		return a.opts.Label
	}
	if a.geo == nil {
		return ""
	}
	if country, ok := a.cache[ip]; ok {
		return country
	}

	country, err := a.geo.Country(ctx, ip)
	if err != nil {
		l := logger.WithComponent("IPFeed/Annotator")
		l.Warn().Err(err).Str("ip", ip).Str("geo", a.geo.Name()).Msg("Geo lookup failed, labelling as Unknown.")
		country = UnknownLabel
	}
	a.cache[ip] = country
	return country
}
