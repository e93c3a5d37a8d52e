package h5pp

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
	"github.com/robert-malhotra/go-h5pp/internal/meta"
)

// Config holds the defaults a File falls back on. It is passed explicitly to
// New; there is no process-wide configuration.
type Config struct {
	// LogLevel is one of trace, debug, info, warn, error, critical or off.
	LogLevel string `json:"logLevel"`
	// LogOutput receives log entries. nil means stderr.
	LogOutput io.Writer `json:"-"`
	// Logger, when set, is used instead of a new logger. LogLevel still
	// applies and LogOutput replaces its output when given.
	Logger *logrus.Logger `json:"-"`

	Layout Thresholds `json:"layout"`

	// Compression is the default level for chunked datasets; 0 disables it.
	Compression  uint   `json:"compression"`
	Codec        Codec  `json:"codec"`
	Shuffle      bool   `json:"shuffle"`
	Fletcher32   bool   `json:"fletcher32"`
	ResizePolicy Policy `json:"resizePolicy"`
}

// DefaultConfig returns the h5pp defaults: info logging, the stock layout
// thresholds, no compression and the automatic resize policy.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Layout:   layout.DefaultThresholds(),
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig and validates
// the result.
func LoadConfig(path string) (Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(buf)
}

// ParseConfig parses YAML config data on top of DefaultConfig and validates
// the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, h5err.Wrap(fmt.Errorf("parsing config: %w", err), h5err.InvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem with the config in one InvalidConfig error.
func (c Config) Validate() error {
	var problems []string
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if err := c.Layout.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := filter.ParseCodec(string(c.Codec)); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Compression > 0 {
		if _, err := filter.Plan(c.Codec, c.Compression, c.Shuffle, c.Fletcher32, 8); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return h5err.New(h5err.InvalidConfig, "invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) logger() *logger.Logger {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		level = logger.InfoLevel
	}
	if c.Logger != nil {
		return logger.FromLogrus(c.Logger, c.LogOutput, level)
	}
	out := c.LogOutput
	if out == nil {
		out = os.Stderr
	}
	return logger.New(out, level)
}

func (c Config) defaults() meta.Defaults {
	return meta.Defaults{
		Thresholds:  c.Layout,
		Compression: c.Compression,
		Codec:       c.Codec,
		Policy:      c.ResizePolicy,
	}
}
