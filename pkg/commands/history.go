package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/procure/pkg/runner/history"
)

func addHistory(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: base.Wrap80("Print the cached transcript without contacting the server."),
		Example: `
procure history
procure history --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp()
			if err != nil {
				return oo.HandleError(err)
			}
			defer a.Close()

			h := history.History{
				Session: a.Session,
				Output:  outputFormat(),
				Out:     cmd.OutOrStdout(),
			}
			return oo.HandleError(h.Do(cmd.Context()))
		},
	}
	base.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
