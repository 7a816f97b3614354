package commands

import (
	"context"

	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/procure/pkg/commands/options"
	"tableflip.dev/procure/pkg/runner/account"
)

func addAccount(topLevel *cobra.Command) {
	topLevel.AddCommand(
		accountCommand(account.ActionRegister, "register", "Create an account and sign in.", `
procure register --email buyer@example.com --password secret1 --phone +421900123456
procure register
`),
		accountCommand(account.ActionLogin, "login", "Sign in with email and password.", `
procure login --email buyer@example.com --password secret1
`),
		accountCommand(account.ActionLogout, "logout", "Sign out and forget the stored token.", `
procure logout
`),
		accountCommand(account.ActionWhoAmI, "whoami", "Show the signed in user.", `
procure whoami
`),
	)
}

func accountCommand(action account.Action, use, short, example string) *cobra.Command {
	ac := &options.AccountOptions{}

	cmd := &cobra.Command{
		Use:     use,
		Short:   base.Wrap80(short),
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			switch action {
			case account.ActionRegister, account.ActionLogin:
				if err := promptCredentials(ac, action == account.ActionRegister); err != nil {
					return oo.HandleError(err)
				}
			}
			a, err := newApp()
			if err != nil {
				return oo.HandleError(err)
			}
			defer a.Close()

			r := account.Account{
				Auth:     a.Auth,
				Action:   action,
				Email:    ac.Email,
				Password: ac.Password,
				Phone:    ac.Phone,
				Output:   outputFormat(),
				Out:      cmd.OutOrStdout(),
			}
			return oo.HandleError(r.Do(context.Background()))
		},
	}

	switch action {
	case account.ActionRegister:
		options.AddCredentialArgs(cmd, ac)
		options.AddPhoneArgs(cmd, ac)
	case account.ActionLogin:
		options.AddCredentialArgs(cmd, ac)
	}
	base.AddOutputArg(cmd, oo)
	return cmd
}
