package commands

import (
	"strings"

	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/procure/pkg/commands/options"
	"tableflip.dev/procure/pkg/runner/send"
)

func addSend(topLevel *cobra.Command) {
	var exportSpec bool
	eo := &options.ExportOptions{}
	ro := &options.RenderOptions{}

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: base.Wrap80("Send one message to the current conversation and print the reply."),
		Example: `
procure send "I need a laptop for video editing"
procure send --export --export-dir ~/specs "yes, that works"
procure send --json "budget is 2000 EUR"
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			a, err := newApp()
			if err != nil {
				return oo.HandleError(err)
			}
			defer a.Close()

			s := send.Send{
				App:          a,
				Conversation: a.Controller,
				Message:      strings.Join(args, " "),
				Markdown:     !ro.Plain,
				Output:       outputFormat(),
				Out:          cmd.OutOrStdout(),
			}
			if exportSpec {
				s.ExportDir = eo.Dir
			}
			return oo.HandleError(s.Do(cmd.Context()))
		},
	}

	cmd.Flags().BoolVar(&exportSpec, "export", false,
		"Save the product specification as JSON when the reply carries one.")
	options.AddExportArgs(cmd, eo, "Directory --export writes to.")
	options.AddRenderArgs(cmd, ro)
	base.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
