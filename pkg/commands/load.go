package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/procure/pkg/commands/options"
	"tableflip.dev/procure/pkg/runner/load"
)

func addLoad(topLevel *cobra.Command) {
	ro := &options.RenderOptions{}

	cmd := &cobra.Command{
		Use:   "load <conversation-id>",
		Short: base.Wrap80("Make a conversation current, falling back to the local cache when the server is down."),
		Example: `
procure load 5f0c2d7e-1b7a-4c1e-9f64-2a1f0b1c9d3e
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runLoad(cmd, load.Load{ID: args[0], Markdown: !ro.Plain})
		},
	}
	options.AddRenderArgs(cmd, ro)
	base.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)

	newCmd := &cobra.Command{
		Use:   "new",
		Short: base.Wrap80("Forget the current conversation and start over."),
		Example: `
procure new
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runLoad(cmd, load.Load{New: true})
		},
	}
	base.AddOutputArg(newCmd, oo)
	topLevel.AddCommand(newCmd)
}

func runLoad(cmd *cobra.Command, l load.Load) error {
	a, err := newApp()
	if err != nil {
		return oo.HandleError(err)
	}
	defer a.Close()

	l.Auth = a.Auth
	l.Conversation = a.Controller
	l.Output = outputFormat()
	l.Out = cmd.OutOrStdout()
	return oo.HandleError(l.Do(cmd.Context()))
}
