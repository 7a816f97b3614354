package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/procure/pkg/runner/info"
	"tableflip.dev/procure/pkg/runner/watch"
)

func addCache(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: base.Wrap80("Inspect the local conversation cache."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: base.Wrap80("Details about the configuration and where the cache is stored."),
		Example: `
procure cache info
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp()
			if err != nil {
				return oo.HandleError(err)
			}
			defer a.Close()

			st := a.Session.State()
			n := info.Info{
				Config:       a.Config,
				Persistence:  a.Store,
				CurrentID:    st.ConversationID,
				MessageCount: len(st.Messages),
				Output:       outputFormat(),
				Out:          cmd.OutOrStdout(),
			}
			return oo.HandleError(n.Do(cmd.Context()))
		},
	}
	base.AddOutputArg(infoCmd, oo)
	cmd.AddCommand(infoCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: base.Wrap80("Follow writes to the cache, including those made by other procure processes."),
		Example: `
procure cache watch
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			w := watch.Watch{Store: a, Out: cmd.OutOrStdout()}
			return w.Do(cmd.Context())
		},
	})

	topLevel.AddCommand(cmd)
}
