package options

import (
	"github.com/spf13/cobra"
)

// AccountOptions are prompted for on a terminal when left empty.
type AccountOptions struct {
	Email    string
	Password string
	Phone    string
}

func AddCredentialArgs(cmd *cobra.Command, o *AccountOptions) {
	cmd.Flags().StringVarP(&o.Email, "email", "e", "",
		"Email address to sign in with.")
	cmd.Flags().StringVarP(&o.Password, "password", "p", "",
		"Password, at least 6 characters.")
}

func AddPhoneArgs(cmd *cobra.Command, o *AccountOptions) {
	cmd.Flags().StringVar(&o.Phone, "phone", "",
		"Phone number in international format, e.g. +421900123456.")
}
