package options

import (
	"time"

	"github.com/spf13/cobra"
)

// APIOptions override the configured backend for a single invocation.
type APIOptions struct {
	APIURL  string
	Timeout time.Duration
	Verbose bool
}

func AddAPIArgs(cmd *cobra.Command, o *APIOptions) {
	cmd.PersistentFlags().StringVar(&o.APIURL, "api-url", "",
		"Base URL of the procurement backend. Defaults to api_url from .procure.yaml.")
	cmd.PersistentFlags().DurationVar(&o.Timeout, "timeout", 0,
		"Per-request timeout, e.g. 10s. Defaults to timeout from .procure.yaml.")
	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false,
		"Log cache and network activity to stderr.")
}
