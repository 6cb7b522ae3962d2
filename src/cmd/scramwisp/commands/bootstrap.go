// FILE: src/cmd/scramwisp/commands/bootstrap.go
package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lixenwraith/log"

	"scramwisp/src/internal/config"
)

// splitOverrides separates command flags from config overrides given after "--".
func splitOverrides(args []string) (flags, overrides []string) {
	for i, arg := range args {
		if arg == "--" {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}

// loadConfig loads configuration with CLI overrides, honoring an explicit
// config file path.
func loadConfig(configFile string, overrides []string) (*config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("SCRAMWISP_CONFIG_FILE", configFile); err != nil {
			return nil, fmt.Errorf("failed to set config path: %w", err)
		}
	}

	cfg, err := config.LoadWithCLI(overrides)
	if err != nil {
		if configFile != "" && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("config file not found: %s", configFile)
		}
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// initializeLogger builds the process logger from the logging section.
func initializeLogger(cfg *config.Config) (*log.Logger, error) {
	logger := log.NewLogger()

	var configArgs []string

	if cfg.Quiet {
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")
		return logger, logger.InitWithDefaults(configArgs...)
	}

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout", "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target="+cfg.Logging.Output)

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configArgs = append(configArgs, fileLoggingArgs(cfg.Logging.File)...)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configArgs = append(configArgs, fileLoggingArgs(cfg.Logging.File)...)
		configArgs = append(configArgs, consoleTargetArgs(cfg.Logging.Console)...)

	default:
		return nil, fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, "format="+cfg.Logging.Console.Format)
	}

	if err := logger.InitWithDefaults(configArgs...); err != nil {
		return nil, err
	}
	return logger, nil
}

func fileLoggingArgs(f config.LogFileConfig) []string {
	args := []string{
		fmt.Sprintf("directory=%s", f.Directory),
		fmt.Sprintf("name=%s", f.Name),
		fmt.Sprintf("max_size_mb=%d", f.MaxSizeMB),
		fmt.Sprintf("max_total_size_mb=%d", f.MaxTotalSizeMB),
	}
	if f.RetentionHours > 0 {
		args = append(args, fmt.Sprintf("retention_period_hrs=%.1f", f.RetentionHours))
	}
	return args
}

func consoleTargetArgs(c config.LogConsoleConfig) []string {
	target := coalesceString(c.Target, "stderr")
	if target == "split" {
		return []string{"stdout_split_mode=true", "stdout_target=split"}
	}
	return []string{"stdout_target=" + target}
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}

func shutdownLogger(logger *log.Logger) {
	if logger == nil {
		return
	}
	if err := logger.Shutdown(2 * time.Second); err != nil {
		// Best effort, the logger itself is gone
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	}
}
