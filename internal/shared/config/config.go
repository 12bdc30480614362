package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"ipfeed/internal/shared/types"
)

const sourceSectionPrefix = "source."

// Environment variables holding secrets. Secrets never come from the ini file.
const (
	EnvGitHubToken         = "MY_GITHUB_TOKEN"
	EnvGitHubTokenFallback = "GITHUB_TOKEN"
	EnvIPInfoToken         = "IPINFO_TOKEN"
)

// Default 返回与原始脚本行为一致的默认配置。
func Default() *types.Config {
	return &types.Config{
		CommonConf: types.CommonConf{
			GeoTimeout: 5,
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
		},
		LogConf: types.LogConf{Level: "info", Format: "console"},
		FetchConf: types.FetchConf{
			Engine:         "http",
			TimeoutSeconds: 20,
		},
		AnnotateConf: types.AnnotateConf{
			Enabled:   true,
			Prefix:    "可",
			Suffix:    "变",
			Geo:       "ipinfo",
			IPInfoURL: "https://ipinfo.io/",
		},
		ProbeConf: types.ProbeConf{TimeoutSeconds: 3},
		PublishConf: types.PublishConf{
			Target:   "github",
			Repo:     "jzhou9096/jilianip",
			Path:     "bzgj.txt",
			Message:  "Update bestcf IP list",
			LocalDir: "out",
		},
	}
}

func defaultSources() []types.SourceConf {
	return []types.SourceConf{{
		Name:        "bestcf",
		Kind:        "csv",
		URL:         "https://ipdb.030101.xyz/api/bestcf.csv",
		Limit:       10,
		Strict:      true,
		DefaultPort: "443",
	}}
}

// LoadEnv 加载 .env 文件到进程环境，已存在的环境变量不会被覆盖。
func LoadEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load 构造配置：默认值 -> ini 文件 -> 环境变量。fileName 为空时只使用默认值。
func Load(fileName string) (*types.Config, error) {
	cfg := Default()

	if fileName != "" {
		// 值里常有 '#' 或 ';'（CSS id 选择器、URL fragment、前后缀），只把整行注释当作注释。
		iniFile, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, fileName)
		if err != nil {
			return nil, err
		}
		if err := iniFile.MapTo(cfg); err != nil {
			return nil, err
		}
		sources, err := loadSources(iniFile)
		if err != nil {
			return nil, err
		}
		cfg.Sources = sources
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultSources()
	}

	overrideFromEnvString(&cfg.PublishConf.Token, EnvGitHubTokenFallback)
	overrideFromEnvString(&cfg.PublishConf.Token, EnvGitHubToken)
	overrideFromEnvString(&cfg.AnnotateConf.IPInfoAuth, EnvIPInfoToken)
	overrideFromEnvInt(&cfg.CommonConf.TotalLimit, "IPFEED_TOTAL_LIMIT")

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSources 读取所有 [source.<name>] 段。可选的 order 键决定顺序，未设置时保持文件中的顺序。
func loadSources(f *ini.File) ([]types.SourceConf, error) {
	var sections []*ini.Section
	for _, sec := range f.Sections() {
		if strings.HasPrefix(sec.Name(), sourceSectionPrefix) {
			sections = append(sections, sec)
		}
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Key("order").MustInt(0) < sections[j].Key("order").MustInt(0)
	})

	sources := make([]types.SourceConf, 0, len(sections))
	for _, sec := range sections {
		src := types.SourceConf{
			Name:        strings.TrimPrefix(sec.Name(), sourceSectionPrefix),
			Kind:        "csv",
			Strict:      true,
			DefaultPort: "443",
		}
		if err := sec.MapTo(&src); err != nil {
			return nil, fmt.Errorf("section %q: %w", sec.Name(), err)
		}
		if !sec.HasKey("limit") && src.Kind == "csv" {
			src.Limit = 10
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Validate 检查配置中互相依赖的字段。
func Validate(cfg *types.Config) error {
	for _, src := range cfg.Sources {
		if src.URL == "" {
			return fmt.Errorf("source %q: url is required", src.Name)
		}
		switch src.Kind {
		case "csv", "html":
		default:
			return fmt.Errorf("source %q: unknown kind %q", src.Name, src.Kind)
		}
		if _, err := strconv.Atoi(src.DefaultPort); err != nil {
			return fmt.Errorf("source %q: invalid default_port %q", src.Name, src.DefaultPort)
		}
	}

	switch cfg.FetchConf.Engine {
	case "http", "colly":
	default:
		return fmt.Errorf("fetch: unknown engine %q", cfg.FetchConf.Engine)
	}

	switch cfg.AnnotateConf.Geo {
	case "", "none", "ipinfo":
	case "geolite":
		if cfg.AnnotateConf.GeoLiteDB == "" {
			return fmt.Errorf("annotate: geo = geolite requires geolite_db")
		}
	default:
		return fmt.Errorf("annotate: unknown geo backend %q", cfg.AnnotateConf.Geo)
	}

	switch cfg.PublishConf.Target {
	case "github":
		if strings.Count(cfg.PublishConf.Repo, "/") != 1 {
			return fmt.Errorf("publish: repo must be owner/name, got %q", cfg.PublishConf.Repo)
		}
	case "file":
		if cfg.PublishConf.LocalDir == "" {
			return fmt.Errorf("publish: target = file requires local_dir")
		}
	default:
		return fmt.Errorf("publish: unknown target %q", cfg.PublishConf.Target)
	}
	if cfg.PublishConf.Path == "" {
		return fmt.Errorf("publish: path is required")
	}
	return nil
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}
