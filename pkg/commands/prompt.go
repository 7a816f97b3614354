package commands

import (
	"errors"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"

	"tableflip.dev/procure/pkg/commands/options"
)

type credentialField struct {
	label  string
	mask   rune
	target *string
}

// promptCredentials asks for whatever the flags left empty. Without a
// terminal it does nothing and validation reports the missing fields.
func promptCredentials(ac *options.AccountOptions, withPhone bool) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil
	}
	fields := []credentialField{
		{label: "Email", target: &ac.Email},
		{label: "Password", mask: '*', target: &ac.Password},
	}
	if withPhone {
		fields = append(fields, credentialField{label: "Phone", target: &ac.Phone})
	}
	for _, f := range fields {
		if *f.target != "" {
			continue
		}
		v, err := ask(f.label, f.mask)
		if err != nil {
			return err
		}
		*f.target = v
	}
	return nil
}

func ask(label string, mask rune) (string, error) {
	templates := &promptui.PromptTemplates{
		Prompt:  "{{ . }}: ",
		Valid:   "{{ . | green }}: ",
		Invalid: "{{ . | red }}: ",
		Success: "{{ . | bold }}: ",
	}

	prompt := promptui.Prompt{
		Label:     label,
		Templates: templates,
		Mask:      mask,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("required")
			}
			return nil
		},
	}
	return prompt.Run()
}
