package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5pp/h5pp"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "h5plan",
	Short:        "Inspect the layout, chunking and selection decisions of h5pp",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file; defaults are used when empty")
}

func loadConfig() (h5pp.Config, error) {
	if cfgFile == "" {
		cfg := h5pp.DefaultConfig()
		cfg.LogLevel = "warn"
		return cfg, nil
	}
	return h5pp.LoadConfig(cfgFile)
}

// parseDims parses a comma-separated shape. "unlimited", "inf" and "-1"
// stand for an unbounded axis when unbounded is set.
func parseDims(s string, unbounded bool) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if s == "scalar" {
		return []uint64{}, nil
	}
	parts := strings.Split(s, ",")
	dims := make([]uint64, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch strings.ToLower(p) {
		case "unlimited", "inf", "-1":
			if !unbounded {
				return nil, fmt.Errorf("axis %d of %q cannot be unlimited", i, s)
			}
			dims[i] = h5pp.Unlimited
			continue
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("axis %d of %q: %w", i, s, err)
		}
		dims[i] = v
	}
	return dims, nil
}

func formatDims(dims []uint64) string {
	if dims == nil {
		return "-"
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		if d == h5pp.Unlimited {
			parts[i] = "unlimited"
		} else {
			parts[i] = strconv.FormatUint(d, 10)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
