// Package info reports where procure keeps its state.
package info

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/procure/pkg/store"
)

// Lister is implemented by *store.Disk and *store.Memory.
type Lister interface {
	Keys(ctx context.Context) []string
}

type Info struct {
	Config      store.Config
	Persistence Lister

	// CurrentID and MessageCount describe the cached conversation.
	CurrentID    string
	MessageCount int

	Output string
	Out    io.Writer
}

// Result is the JSON form of Info.
type Result struct {
	ConfigPath     string   `json:"configPath,omitempty"`
	BasePath       string   `json:"basePath"`
	APIURL         string   `json:"apiUrl"`
	Timeout        string   `json:"timeout"`
	LogFile        string   `json:"logFile,omitempty"`
	Keys           []string `json:"keys"`
	ConversationID string   `json:"conversationId,omitempty"`
	Messages       int      `json:"messages"`
}

func (n *Info) Do(ctx context.Context) error {
	if n.Config == nil {
		var err error
		n.Config, err = store.LoadConfig()
		if err != nil {
			return err
		}
	}
	if n.Persistence == nil {
		return fmt.Errorf("failed to create persistence object")
	}

	res := Result{
		ConfigPath:     os.Getenv("PROCURE_CONFIG_PATH"),
		BasePath:       n.Config.BasePath(),
		APIURL:         n.Config.APIURL(),
		Timeout:        n.Config.Timeout().String(),
		LogFile:        n.Config.LogFile(),
		Keys:           n.Persistence.Keys(ctx),
		ConversationID: n.CurrentID,
		Messages:       n.MessageCount,
	}

	out := n.Out
	if out == nil {
		out = color.Output
	}
	if n.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	configPath := res.ConfigPath
	if configPath == "" {
		configPath = "PROCURE_CONFIG_PATH not set"
	}
	logFile := res.LogFile
	if logFile == "" {
		logFile = "-"
	}
	conversation := res.ConversationID
	if conversation == "" {
		conversation = "-"
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(color.New(color.Bold).Sprint("config"), configPath)
	tbl.AddRow(color.New(color.Bold).Sprint("cache"), res.BasePath)
	tbl.AddRow(color.New(color.Bold).Sprint("api"), res.APIURL)
	tbl.AddRow(color.New(color.Bold).Sprint("timeout"), res.Timeout)
	tbl.AddRow(color.New(color.Bold).Sprint("log"), logFile)
	tbl.AddRow(color.New(color.Bold).Sprint("conversation"), conversation)
	tbl.AddRow(color.New(color.Bold).Sprint("messages"), res.Messages)
	_, _ = fmt.Fprintln(out, tbl)

	_, _ = fmt.Fprintln(out, "keys:")
	if len(res.Keys) == 0 {
		_, _ = fmt.Fprintf(out, "  %s\n", "no keys")
	}
	for _, k := range res.Keys {
		_, _ = fmt.Fprintf(out, "  %s\n", k)
	}
	return nil
}
