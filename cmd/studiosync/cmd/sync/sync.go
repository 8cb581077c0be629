package sync

import (
	"context"
	"io"

	"github.com/agentstation/studiosync/cmd/application"
	"github.com/agentstation/studiosync/internal/cmd/output"
	"github.com/agentstation/studiosync/internal/filter"
	"github.com/agentstation/studiosync/pkg/errors"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

// Execute runs one sync and writes its report to w, also when the run
// failed part way.
func Execute(ctx context.Context, app application.Application, w io.Writer, flags *Flags, studioID string) error {
	opts, err := BuildOptions(app, flags)
	if err != nil {
		return err
	}
	syncer, err := app.Syncer(ctx)
	if err != nil {
		return err
	}
	format := output.DetectFormat(app.OutputFormat())

	var report *pkgsync.Report
	if studioID != "" {
		report, err = syncer.RunStudio(ctx, studioID, opts...)
	} else {
		report, err = syncer.Run(ctx, opts...)
	}
	if report != nil {
		if werr := output.Report(w, format, report); werr != nil {
			return errors.Join(err, werr)
		}
	}
	return err
}

// BuildOptions converts flags to run options. Configuration defaults come
// first so flags override them.
func BuildOptions(app application.Application, flags *Flags) ([]pkgsync.Option, error) {
	opts := append([]pkgsync.Option(nil), app.RunDefaults()...)
	opts = append(opts,
		pkgsync.WithDryRun(flags.DryRun),
		pkgsync.WithForce(flags.Force),
		pkgsync.WithLimit(flags.Limit),
	)
	if flags.Threshold >= 0 {
		opts = append(opts, pkgsync.WithThreshold(flags.Threshold))
	}
	if flags.NoFuzzy {
		opts = append(opts, pkgsync.WithFuzzy(false))
	}

	f, err := filter.New(flags.Only, flags.Exclude)
	if err != nil {
		return nil, errors.WrapValidation("only", err)
	}
	if !f.IsEmpty() {
		opts = append(opts, pkgsync.WithSelect(f.Keep))
	}
	return opts, nil
}
