package commands

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/procure/pkg/app"
	"tableflip.dev/procure/pkg/commands/options"
	"tableflip.dev/procure/pkg/runner/chat"
)

func addChat(topLevel *cobra.Command) {
	eo := &options.ExportOptions{}
	ro := &options.RenderOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: base.Wrap80("Open the conversation. Uses a full screen view on a terminal and a line prompt otherwise."),
		Example: `
procure chat
procure chat --plain --export-dir ~/specs
echo "I need 20 ergonomic chairs" | procure chat
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			tui := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
			o := appOptions()
			r := &chat.REPL{
				In:        cmd.InOrStdin(),
				Out:       cmd.OutOrStdout(),
				ExportDir: eo.Dir,
				Markdown:  !ro.Plain,
			}
			if tui {
				// stderr would draw over the screen; log_file still applies.
				o.Verbose = false
			} else {
				o.Notifier = r.Notify
			}
			a, err := app.New(nil, o)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Auth.Require(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if tui {
				return chat.Run(ctx, a.Controller, eo.Dir, ro.Plain)
			}
			r.Conv = a.Controller
			return r.Do(ctx)
		},
	}

	options.AddExportArgs(cmd, eo, "Directory /export writes specifications to.")
	options.AddRenderArgs(cmd, ro)

	topLevel.AddCommand(cmd)
}
