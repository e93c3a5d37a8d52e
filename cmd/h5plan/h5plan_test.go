package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-h5pp/h5pp"
)

func TestParseDims(t *testing.T) {
	tests := []struct {
		in        string
		unbounded bool
		want      []uint64
		ok        bool
	}{
		{"", false, nil, true},
		{"scalar", false, []uint64{}, true},
		{"3, 10", false, []uint64{3, 10}, true},
		{"unlimited,10", true, []uint64{h5pp.Unlimited, 10}, true},
		{"unlimited,10", false, nil, false},
		{"3,x", false, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDims(tt.in, tt.unbounded)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	out, err := run(t, "plan", "--type", "float64", "--dims", "3,10", "--max-dims", "unlimited,10", "--compression", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "layout:     chunked")
	assert.Contains(t, out, "max dims:   {unlimited, 10}")
	assert.Contains(t, out, "filters:")
	assert.Contains(t, out, "bytes:      240")
}

func TestSelectCommand(t *testing.T) {
	out, err := run(t, "select", "--dims", "6,6", "--offset", "1,2", "--extent", "3,3")
	require.NoError(t, err)
	assert.Contains(t, out, "elements:  9 of 36")

	_, err = run(t, "select", "--dims", "6,6", "--offset", "4,4", "--extent", "3,3")
	assert.Error(t, err)
}
