package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/procure/pkg/app"
	"tableflip.dev/procure/pkg/commands/options"
)

var (
	oo = &base.OutputOptions{}
	ao = &options.APIOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "procure",
		Short: base.Wrap80("Talk to the AI procurement assistant from the command line."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	options.AddAPIArgs(cmd, ao)

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addAccount(topLevel)
	addChat(topLevel)
	addSend(topLevel)
	addLoad(topLevel)
	addHistory(topLevel)
	addCache(topLevel)
	addMCP(topLevel)
	addVersion(topLevel)
}

func appOptions() app.Options {
	return app.Options{
		APIURL:  ao.APIURL,
		Timeout: ao.Timeout,
		Verbose: ao.Verbose,
	}
}

// newApp assembles the client from .procure.yaml and the persistent flags.
func newApp() (*app.App, error) {
	return app.New(nil, appOptions())
}

func outputFormat() string {
	if oo.JSON {
		return "json"
	}
	return ""
}
