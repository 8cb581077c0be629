package output

import (
	"io"

	"github.com/agentstation/studiosync/internal/cmd/table"
	"github.com/agentstation/studiosync/internal/journal"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

// Report writes a sync report. Tables show the outcomes followed by the
// per-state counts; structured formats write the report as is.
func Report(w io.Writer, format Format, report *pkgsync.Report) error {
	var data any = report
	if format.IsTable() {
		data = []table.Data{
			table.OutcomesToTableData(report, format == FormatWide),
			table.CountsToTableData(report),
		}
	}
	return write(w, format, data)
}

// Sources writes the configured sources in priority order.
func Sources(w io.Writer, format Format, list *sources.List) error {
	if format.IsTable() {
		return write(w, format, table.SourcesToTableData(list))
	}
	type entry struct {
		Priority int          `json:"priority" yaml:"priority"`
		Name     string       `json:"name" yaml:"name"`
		Type     sources.Type `json:"type" yaml:"type"`
		Endpoint sources.ID   `json:"endpoint" yaml:"endpoint"`
	}
	entries := make([]entry, 0, list.Len())
	for i, src := range list.All() {
		entries = append(entries, entry{Priority: i + 1, Name: src.Name(), Type: src.Type(), Endpoint: src.ID()})
	}
	return write(w, format, entries)
}

// Runs writes journal run summaries.
func Runs(w io.Writer, format Format, runs []journal.RunSummary) error {
	if format.IsTable() {
		return write(w, format, table.RunsToTableData(runs))
	}
	return write(w, format, runs)
}

// Review writes pending review items.
func Review(w io.Writer, format Format, items []journal.ReviewItem) error {
	if format.IsTable() {
		return write(w, format, table.ReviewToTableData(items))
	}
	return write(w, format, items)
}
