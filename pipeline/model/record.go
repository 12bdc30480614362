package model

import "net"

// DefaultPort 是记录没有显式端口时使用的端口。
const DefaultPort = "443"

// Record 是从源中抽取出的一条 (address, port) 记录。
// Port 在抽取阶段就已规范化，下游代码不需要再区分有无端口。
type Record struct {
	Address string
	Port    string
	Source  string // 来源名称, e.g., "bestcf"
}

// Key 返回用于去重的 "address:port"。
func (r Record) Key() string {
	return net.JoinHostPort(r.Address, r.Port)
}

// Dedupe 按 Key 去重，保留首次出现的记录及其顺序。
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Diagnostic 描述一次被跳过的行、源或记录，在运行结束时统一输出。
type Diagnostic struct {
	Stage  string // "fetch", "extract", "probe"
	Source string
	Line   int
	Token  string
	Reason string
}
