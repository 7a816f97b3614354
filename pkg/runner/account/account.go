// Package account runs the sign in commands.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/procure/pkg/auth"
)

// Action selects what Account does.
type Action int

const (
	ActionWhoAmI Action = iota
	ActionRegister
	ActionLogin
	ActionLogout
)

type Account struct {
	Auth   *auth.Service
	Action Action

	Email    string
	Password string
	Phone    string

	Output string
	Out    io.Writer
}

func (a *Account) Do(ctx context.Context) error {
	var (
		user *auth.User
		err  error
	)
	switch a.Action {
	case ActionRegister:
		user, err = a.Auth.Register(a.Email, a.Password, a.Phone)
	case ActionLogin:
		user, err = a.Auth.Login(a.Email, a.Password)
	case ActionLogout:
		if err := a.Auth.Logout(); err != nil {
			return err
		}
		return a.print(map[string]bool{"signedIn": false}, "Signed out.")
	default:
		user, err = a.Auth.CurrentUser()
	}
	if err != nil {
		return err
	}
	return a.print(user, fmt.Sprintf("Signed in as %s (%s).", user.Email, user.Phone))
}

func (a *Account) print(v interface{}, text string) error {
	out := a.Out
	if out == nil {
		out = color.Output
	}
	if a.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(out, text)
	return err
}
