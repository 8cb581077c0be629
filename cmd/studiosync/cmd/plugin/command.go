// Package plugin runs studiosync as a Stash plugin task. Stash starts the
// binary with the plugin input on stdin and reads a JSON result from stdout.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/studiosync/cmd/application"
	"github.com/agentstation/studiosync/internal/catalogs/stash"
	"github.com/agentstation/studiosync/pkg/errors"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

// Input is the JSON document Stash writes to a plugin's stdin.
type Input struct {
	ServerConnection ServerConnection `json:"server_connection"`
	Args             Args             `json:"args"`
}

// ServerConnection describes how to reach the Stash server.
type ServerConnection struct {
	Scheme        string         `json:"Scheme"`
	Host          string         `json:"Host"`
	Port          int            `json:"Port"`
	ApiKey        string         `json:"ApiKey"` //nolint:revive // Stash's field name
	SessionCookie *SessionCookie `json:"SessionCookie"`
}

// SessionCookie is the session of the user who started the task.
type SessionCookie struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// URL returns the server's base URL. Empty parts default to
// http://localhost:9999.
func (c ServerConnection) URL() string {
	scheme, host, port := c.Scheme, c.Host, c.Port
	if scheme == "" {
		scheme = "http"
	}
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	if port == 0 {
		port = 9999
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Args are the task arguments. Stash passes plugin settings as strings, so
// booleans and numbers accept both forms.
type Args struct {
	StudioID       Flex `json:"studio_id"`
	DryRun         Flex `json:"dry_run"`
	Force          Flex `json:"force"`
	Limit          Flex `json:"limit"`
	FuzzyThreshold Flex `json:"fuzzy_threshold"`
	UseFuzzy       Flex `json:"use_fuzzy_matching"`
}

// Flex holds a JSON scalar of any type as its string form.
type Flex string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	*f = Flex(strings.TrimSpace(string(data)))
	return nil
}

// Set reports whether a value was given.
func (f Flex) Set() bool { return f != "" }

// Bool parses the value as a boolean; anything unparsable is false.
func (f Flex) Bool() bool {
	b, _ := strconv.ParseBool(strings.ToLower(string(f)))
	return b
}

// Int parses the value as an integer.
func (f Flex) Int() (int, error) {
	return strconv.Atoi(string(f))
}

// Result is written to stdout. Stash shows Error when it is set.
type Result struct {
	Output *pkgsync.Report `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewCommand creates the plugin command. Input is read from stdin.
func NewCommand(app application.Application, stdin io.Reader) *cobra.Command {
	return &cobra.Command{
		Use:     "plugin",
		GroupID: "core",
		Short:   "Run as a Stash plugin task (reads plugin input from stdin)",
		Args:    cobra.NoArgs,
		Long: `Plugin reads the task input Stash passes to plugins on stdin, connects
to the Stash server described by server_connection, and runs a sync.

A studio_id argument syncs that studio; otherwise every studio is synced.
The result is written to stdout as {"output": report} or {"error": message}.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, stdin, cmd.OutOrStdout())
		},
	}
}

// Execute runs one plugin task. A failed run is reported in the result
// document and also returned, so the process exits non-zero.
func Execute(ctx context.Context, app application.Application, r io.Reader, w io.Writer) error {
	report, err := run(ctx, app, r)
	result := Result{Output: report}
	if err != nil {
		result.Error = err.Error()
	}
	if encErr := json.NewEncoder(w).Encode(result); encErr != nil {
		return errors.Join(err, encErr)
	}
	return err
}

func run(ctx context.Context, app application.Application, r io.Reader) (*pkgsync.Report, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.WrapParse("json", "stdin", err)
	}

	cfg := stash.Config{URL: in.ServerConnection.URL(), APIKey: in.ServerConnection.ApiKey}
	if c := in.ServerConnection.SessionCookie; c != nil && c.Value != "" {
		cfg.SessionCookie = &stash.Cookie{Name: c.Name, Value: c.Value}
	}
	app.ConnectStash(cfg)

	opts, err := options(app, in.Args)
	if err != nil {
		return nil, err
	}

	syncer, err := app.Syncer(ctx)
	if err != nil {
		return nil, err
	}
	if id := string(in.Args.StudioID); id != "" {
		return syncer.RunStudio(ctx, id, opts...)
	}
	return syncer.Run(ctx, opts...)
}

func options(app application.Application, args Args) ([]pkgsync.Option, error) {
	opts := append([]pkgsync.Option(nil), app.RunDefaults()...)
	opts = append(opts,
		pkgsync.WithDryRun(args.DryRun.Bool()),
		pkgsync.WithForce(args.Force.Bool()),
	)
	if args.Limit.Set() {
		limit, err := args.Limit.Int()
		if err != nil {
			return nil, errors.NewValidationError("limit", string(args.Limit), "must be an integer")
		}
		opts = append(opts, pkgsync.WithLimit(limit))
	}
	if args.FuzzyThreshold.Set() {
		threshold, err := args.FuzzyThreshold.Int()
		if err != nil {
			return nil, errors.NewValidationError("fuzzy_threshold", string(args.FuzzyThreshold), "must be an integer")
		}
		opts = append(opts, pkgsync.WithThreshold(threshold))
	}
	if args.UseFuzzy.Set() {
		opts = append(opts, pkgsync.WithFuzzy(args.UseFuzzy.Bool()))
	}
	return opts, nil
}
