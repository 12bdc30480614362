package types

// CommonConf 控制流水线中与具体阶段无关的开关。
type CommonConf struct {
	Dedupe     bool   `ini:"dedupe"`      // 按 address:port 去重，保留首次出现的顺序
	TotalLimit int    `ini:"total_limit"` // 合并所有源之后的总数上限，<=0 表示不限制
	SkipEmpty  bool   `ini:"skip_empty"`  // 没有任何记录时不发布
	GeoTimeout int    `ini:"geo_timeout_seconds"`
	UserAgent  string `ini:"user_agent"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level  string `ini:"level"`
	Format string `ini:"format"` // "console" (default) or "json"
}

// FetchConf 配置源抓取。
type FetchConf struct {
	Engine         string `ini:"engine"` // "http" (default) or "colly"
	TimeoutSeconds int    `ini:"timeout_seconds"`
	ProxyURL       string `ini:"proxy_url"` // 可选的前置代理, http:// 或 socks5://
}

// AnnotateConf 配置每一行的标注格式。
type AnnotateConf struct {
	Enabled    bool   `ini:"enabled"`
	Prefix     string `ini:"prefix"`
	Suffix     string `ini:"suffix"`
	Label      string `ini:"label"`     // 静态标签；非空时不做地理位置查询
	OmitPort   bool   `ini:"omit_port"` // address#... 而不是 address:port#...
	Geo        string `ini:"geo"`       // "none", "ipinfo" or "geolite"
	IPInfoURL  string `ini:"ipinfo_url"`
	GeoLiteDB  string `ini:"geolite_db"`
	IPInfoAuth string `ini:"-"` // 只从环境变量读取
}

// ProbeConf 配置可达性探测。
type ProbeConf struct {
	Enabled        bool   `ini:"enabled"`
	TimeoutSeconds int    `ini:"timeout_seconds"`
	Socks5         string `ini:"socks5"` // host:port of an upstream SOCKS5 proxy
}

// PublishConf 配置发布目标。
type PublishConf struct {
	Target   string `ini:"target"` // "github" (default) or "file"
	Repo     string `ini:"repo"`   // owner/name
	Branch   string `ini:"branch"`
	Path     string `ini:"path"`
	Message  string `ini:"message"`
	LocalDir string `ini:"local_dir"`
	Token    string `ini:"-"` // 只从环境变量读取
}

// SourceConf 对应一个 [source.<name>] 段。
type SourceConf struct {
	Name        string `ini:"-"`
	Kind        string `ini:"kind"` // "csv" or "html"
	URL         string `ini:"url"`
	Limit       int    `ini:"limit"`
	Strict      bool   `ini:"strict"`
	Selector    string `ini:"selector"`
	DefaultPort string `ini:"default_port"`
}

// Config 是 ipfeed 的统一配置结构体，启动时构造一次并传给各个组件。
type Config struct {
	CommonConf   `ini:"common"`
	LogConf      `ini:"log"`
	FetchConf    `ini:"fetch"`
	AnnotateConf `ini:"annotate"`
	ProbeConf    `ini:"probe"`
	PublishConf  `ini:"publish"`

	Sources []SourceConf `ini:"-"`
}
