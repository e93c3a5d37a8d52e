package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5pp/h5pp"
	"github.com/robert-malhotra/go-h5pp/internal/filter"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
)

var (
	planType        string
	planDims        string
	planMaxDims     string
	planChunkDims   string
	planLayout      string
	planCompression uint
	planCodec       string
	planShuffle     bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the layout, chunk dims and filters chosen for a dataset",
	Example: `  h5plan plan --type float64 --dims 1000,1000
  h5plan plan --type int32 --dims 3,10 --max-dims unlimited,10 --compression 6`,
	RunE: planRunE,
}

func planRunE(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	typ, err := h5pp.ParseType(planType)
	if err != nil {
		return err
	}
	opts := []h5pp.Option{h5pp.WithType(typ)}

	dims, err := parseDims(planDims, false)
	if err != nil {
		return err
	}
	if dims == nil {
		return fmt.Errorf("--dims is required")
	}
	opts = append(opts, h5pp.WithDims(dims...))
	maxDims, err := parseDims(planMaxDims, true)
	if err != nil {
		return err
	}
	if maxDims != nil {
		opts = append(opts, h5pp.WithMaxDims(maxDims...))
	}
	chunkDims, err := parseDims(planChunkDims, false)
	if err != nil {
		return err
	}
	if chunkDims != nil {
		opts = append(opts, h5pp.WithChunkDims(chunkDims...))
	}
	if planLayout != "" {
		class, err := layout.ParseClass(planLayout)
		if err != nil {
			return err
		}
		opts = append(opts, h5pp.WithLayout(class))
	}
	if cmd.Flags().Changed("compression") {
		opts = append(opts, h5pp.WithCompression(planCompression))
	}
	if planCodec != "" {
		codec, err := filter.ParseCodec(planCodec)
		if err != nil {
			return err
		}
		opts = append(opts, h5pp.WithCodec(codec))
	}
	opts = append(opts, h5pp.WithShuffle(planShuffle))

	f, err := h5pp.New(cfg)
	if err != nil {
		return err
	}
	defer f.Close()
	d, _, err := f.BuildDescriptor(h5pp.NewOptions("/plan", opts...), nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "type:       %s (%d bytes)\n", d.Type, d.Type.Size)
	fmt.Fprintf(out, "dims:       %s\n", formatDims(d.Dims))
	fmt.Fprintf(out, "max dims:   %s\n", formatDims(d.MaxDims))
	fmt.Fprintf(out, "layout:     %s\n", d.Layout)
	fmt.Fprintf(out, "bytes:      %d\n", d.Bytes())
	if d.Layout == h5pp.Chunked {
		chunkBytes := uint64(d.Type.Size)
		for _, c := range d.ChunkDims {
			chunkBytes *= c
		}
		fmt.Fprintf(out, "chunk dims: %s (%d bytes)\n", formatDims(d.ChunkDims), chunkBytes)
	}
	if len(d.Filters) > 0 {
		p, err := filter.NewPipeline(d.Filters)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "filters:    %s\n", p)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planType, "type", "t", "float64", "Element type, e.g. int32, float64be, string[16]")
	planCmd.Flags().StringVarP(&planDims, "dims", "d", "", "Comma-separated shape, or \"scalar\"")
	planCmd.Flags().StringVar(&planMaxDims, "max-dims", "", "Comma-separated max shape; \"unlimited\" for an unbounded axis")
	planCmd.Flags().StringVar(&planChunkDims, "chunk-dims", "", "Comma-separated chunk shape")
	planCmd.Flags().StringVar(&planLayout, "layout", "", "Force compact, contiguous or chunked")
	planCmd.Flags().UintVar(&planCompression, "compression", 0, "Compression level; 0 disables it")
	planCmd.Flags().StringVar(&planCodec, "codec", "", "Compression codec: deflate, zstd, lz4 or s2")
	planCmd.Flags().BoolVar(&planShuffle, "shuffle", false, "Shuffle bytes ahead of compression")
}
