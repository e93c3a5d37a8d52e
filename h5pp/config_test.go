package h5pp

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5pp/h5err"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint64(32*1024), cfg.Layout.MaxCompactBytes)
	assert.Equal(t, ResizeDefault, cfg.ResizePolicy)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h5pp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logLevel: debug
layout:
  maxCompactBytes: 1024
compression: 5
codec: zstd
shuffle: true
resizePolicy: grow
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(1024), cfg.Layout.MaxCompactBytes)
	assert.Equal(t, uint64(512*1024), cfg.Layout.MaxContiguousBytes, "unset fields keep their defaults")
	assert.Equal(t, uint(5), cfg.Compression)
	assert.Equal(t, CodecZstd, cfg.Codec)
	assert.True(t, cfg.Shuffle)
	assert.Equal(t, ResizeGrow, cfg.ResizePolicy)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"log level", "logLevel: loud", "unknown log level"},
		{"thresholds", "layout: {maxCompactBytes: 10, maxContiguousBytes: 5}", "max compact bytes"},
		{"codec", "codec: brotli", "unknown compression codec"},
		{"deflate level", "compression: 12", "out of range"},
		{"policy", "resizePolicy: sometimes", "resize policy"},
		{"syntax", "layout: [", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := ParseConfig([]byte("logLevel: loud\ncodec: brotli"))
	require.True(t, h5err.Is(err, h5err.InvalidConfig), "got %v", err)
	assert.Contains(t, err.Error(), "; ")
}

func TestConfigDefaultsApply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "off"
	cfg.Layout.MaxCompactBytes = 16
	cfg.Layout.MaxContiguousBytes = 64
	cfg.Compression = 1
	f, err := New(cfg)
	require.NoError(t, err)
	defer f.Close()

	d, _, err := f.BuildDescriptor(NewOptions("/small"), []int32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, Compact, d.Layout)
	assert.Empty(t, d.Filters)

	d, _, err = f.BuildDescriptor(NewOptions("/large"), make([]int32, 100))
	require.NoError(t, err)
	assert.Equal(t, Chunked, d.Layout)
	require.Len(t, d.Filters, 1)

	_, err = New(Config{LogLevel: "info"})
	assert.True(t, h5err.Is(err, h5err.InvalidConfig), "got %v", err)
}

func TestConfigLogOutput(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.LogOutput = &buf
	f, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, f.WriteDataset("/x", []int8{1}))
	require.NoError(t, f.Close())
	assert.Contains(t, buf.String(), "package=")
}
