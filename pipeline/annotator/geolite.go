package annotator

import (
	"context"
	"net"

	"github.com/oschwald/geoip2-golang"

	"ipfeed/internal/shared/errors"
)

// GeoLite 使用本地 MaxMind GeoLite2 Country 数据库查询国家代码，不需要网络。
type GeoLite struct {
	db *geoip2.Reader
}

func OpenGeoLite(path string) (*GeoLite, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoLite{db: db}, nil
}

func (g *GeoLite) Name() string {
	return "geolite"
}

func (g *GeoLite) Country(_ context.Context, ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", errors.New(errors.KindLookup, "not an IP address").AtSource(ip)
	}

	record, err := g.db.Country(parsed)
	if err != nil {
		return "", errors.New(errors.KindLookup, "geolite lookup failed").AtSource(ip).Base(err)
	}
	if record.Country.IsoCode == "" {
		return "", errors.New(errors.KindLookup, "no country in geolite database").AtSource(ip)
	}
	return record.Country.IsoCode, nil
}

func (g *GeoLite) Close() error {
	return g.db.Close()
}
