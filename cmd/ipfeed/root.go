package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ipfeed/internal/shared/config"
	"ipfeed/internal/shared/logger"
	"ipfeed/pipeline"
)

const defaultConfigPath = "configs/ipfeed.ini"

type rootOptions struct {
	configPath string
	envFile    string
	dryRun     bool
	logLevel   string
}

// NewRootCmd creates the root command. Running it executes one pipeline pass.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ipfeed",
		Short: "Fetch, annotate and publish proxy IP lists",
		Long: `ipfeed downloads proxy IP lists from the configured sources, extracts
address:port records, annotates each line with a prefix, label and suffix,
and publishes the result as a single file to a GitHub repository.

Secrets are read from the environment only:
  MY_GITHUB_TOKEN (or GITHUB_TOKEN)  token used for publishing
  IPINFO_TOKEN                       token used for ipinfo lookups`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "Path to ini config file (empty uses built-in defaults)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional .env file loaded before reading the environment")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the generated list to stdout instead of publishing")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Override [log] level (debug, info, warn, error)")

	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func run(cmd *cobra.Command, opts *rootOptions) error {
	// 1. 加载 .env，文件不存在时继续使用进程环境
	envErr := loadEnvFile(opts.envFile)

	// 2. 加载配置；默认路径的文件不存在时使用内置默认值
	configPath := opts.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			configPath = ""
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", configPath, err)
	}
	if opts.logLevel != "" {
		cfg.LogConf.Level = opts.logLevel
	}

	// 3. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	l := logger.WithComponent("IPFeed/Main")
	if envErr != nil {
		l.Warn().Err(envErr).Str("file", opts.envFile).Msg("Failed to load .env file, using process environment.")
	}
	if configPath == "" {
		l.Info().Msg("No config file found, using built-in defaults.")
	}

	// 4. 构造并运行流水线
	components, err := pipeline.BuildComponents(cfg, opts.dryRun)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.NewManager(cfg, components, cmd.OutOrStdout()).Run(ctx)
	if err != nil {
		return err
	}
	l.Info().
		Str("run_id", report.RunID).
		Int("records", len(report.Records)).
		Int("diagnostics", len(report.Diagnostics)).
		Msg("Run finished.")
	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return config.LoadEnv(path)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
