package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5pp/h5pp"
)

var (
	selectDims   string
	selectOffset string
	selectExtent string
	selectStride string
	selectBlock  string
)

var selectCmd = &cobra.Command{
	Use:     "select",
	Short:   "Check a hyperslab against a shape and print what it selects",
	Example: `  h5plan select --dims 6,6 --offset 1,2 --extent 3,3`,
	RunE:    selectRunE,
}

func selectRunE(cmd *cobra.Command, args []string) error {
	var slab h5pp.Hyperslab
	dims, err := parseDims(selectDims, false)
	if err != nil {
		return err
	}
	for _, field := range []struct {
		flag string
		val  string
		dst  *[]uint64
	}{
		{"offset", selectOffset, &slab.Offset},
		{"extent", selectExtent, &slab.Extent},
		{"stride", selectStride, &slab.Stride},
		{"block", selectBlock, &slab.Block},
	} {
		if *field.dst, err = parseDims(field.val, false); err != nil {
			return fmt.Errorf("--%s: %w", field.flag, err)
		}
	}

	d, err := h5pp.ApplyHyperslab(h5pp.Descriptor{Path: "/select", Dims: dims}, slab)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dims:      %s\n", formatDims(d.Dims))
	fmt.Fprintf(out, "selection: %s\n", d.Slab)
	fmt.Fprintf(out, "shape:     %s\n", formatDims(d.Slab.Shape()))
	fmt.Fprintf(out, "elements:  %d of %d\n", d.Slab.NumElements(), d.Size())
	return nil
}

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVarP(&selectDims, "dims", "d", "", "Comma-separated shape")
	selectCmd.Flags().StringVar(&selectOffset, "offset", "", "Comma-separated start")
	selectCmd.Flags().StringVar(&selectExtent, "extent", "", "Comma-separated count")
	selectCmd.Flags().StringVar(&selectStride, "stride", "", "Comma-separated stride; 1 when empty")
	selectCmd.Flags().StringVar(&selectBlock, "block", "", "Comma-separated block; 1 when empty")
}
