package options

import (
	"github.com/spf13/cobra"
)

// RenderOptions control how assistant replies are drawn.
type RenderOptions struct {
	Plain bool
}

func AddRenderArgs(cmd *cobra.Command, o *RenderOptions) {
	cmd.Flags().BoolVar(&o.Plain, "plain", false,
		"Print replies as plain text instead of rendered markdown.")
}

// ExportOptions
type ExportOptions struct {
	Dir string
}

func AddExportArgs(cmd *cobra.Command, o *ExportOptions, usage string) {
	cmd.Flags().StringVar(&o.Dir, "export-dir", ".", usage)
}
