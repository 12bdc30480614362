package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/proxy"

	"ipfeed/internal/shared/logger"
	"ipfeed/pipeline/model"
)

// contextDialer is satisfied by *net.Dialer and by the SOCKS5 dialer from x/net/proxy.
type contextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// Prober 逐条检查记录的 TCP 可达性，丢弃无法连接的记录。
type Prober struct {
	timeout time.Duration
	dialer  contextDialer
}

// NewProber 创建一个新的 Prober。socks5Addr 非空时经由该 SOCKS5 代理拨号。
func NewProber(timeout time.Duration, socks5Addr string) (*Prober, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	direct := &net.Dialer{Timeout: timeout}
	if socks5Addr == "" {
		return &Prober{timeout: timeout, dialer: direct}, nil
	}

	d, err := proxy.SOCKS5("tcp", socks5Addr, nil, direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer does not support contexts")
	}
	return &Prober{timeout: timeout, dialer: cd}, nil
}

// Filter 保持输入顺序，返回可达的记录和被丢弃记录的诊断信息。
func (p *Prober) Filter(ctx context.Context, records []model.Record) ([]model.Record, []model.Diagnostic) {
	l := logger.WithComponent("IPFeed/Probe")
	l.Info().Int("count", len(records)).Dur("timeout", p.timeout).Msg("Starting reachability probe...")

	kept := make([]model.Record, 0, len(records))
	var dropped []model.Diagnostic
	for _, rec := range records {
		start := time.Now()
		if err := p.check(ctx, rec); err != nil {
			l.Debug().Err(err).Str("addr", rec.Key()).Msg("Record unreachable, dropping.")
			dropped = append(dropped, model.Diagnostic{
				Stage:  "probe",
				Source: rec.Source,
				Token:  rec.Key(),
				Reason: err.Error(),
			})
			continue
		}
		l.Debug().Str("addr", rec.Key()).Dur("latency", time.Since(start)).Msg("Record reachable.")
		kept = append(kept, rec)
	}

	l.Info().Int("kept", len(kept)).Int("dropped", len(dropped)).Msg("Probe finished.")
	return kept, dropped
}

func (p *Prober) check(ctx context.Context, rec model.Record) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", rec.Key())
	if err != nil {
		return err
	}
	return conn.Close()
}
