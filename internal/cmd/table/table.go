// Package table converts sync results into rows for terminal tables.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/studiosync/internal/journal"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // optional
}

var title = cases.Title(language.English)

// StateLabel renders a state for humans, e.g. "Already Complete".
func StateLabel(s pkgsync.State) string {
	return title.String(strings.ReplaceAll(string(s), "_", " "))
}

// OutcomesToTableData converts a report's outcomes to table format. Wide
// adds one row per field change.
func OutcomesToTableData(report *pkgsync.Report, wide bool) Data {
	headers := []string{"ID", "Studio", "Outcome", "Changes", "Parent", "Sources"}
	if wide {
		headers = append(headers, "Details")
	}

	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		row := []string{
			o.StudioID,
			o.Name,
			StateLabel(o.State),
			strconv.Itoa(len(o.FieldChanges)),
			parentCell(o),
			joinSources(o.ContributingSources),
		}
		if wide {
			row = append(row, details(o))
		}
		rows = append(rows, row)
	}

	align := []Align{AlignRight, AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignLeft}
	if wide {
		align = append(align, AlignLeft)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// CountsToTableData converts a report's per-state counts to table format.
func CountsToTableData(report *pkgsync.Report) Data {
	rows := make([][]string, 0, len(pkgsync.States)+1)
	for _, s := range pkgsync.States {
		rows = append(rows, []string{StateLabel(s), strconv.Itoa(report.Counts[s])})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(len(report.Outcomes))})
	return Data{
		Headers:         []string{"Outcome", "Studios"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// SourcesToTableData converts sources to table format in priority order.
func SourcesToTableData(list *sources.List) Data {
	rows := make([][]string, 0, list.Len())
	for i, src := range list.All() {
		rows = append(rows, []string{strconv.Itoa(i + 1), src.Name(), string(src.Type()), src.ID().String()})
	}
	return Data{
		Headers:         []string{"Priority", "Name", "Type", "Endpoint"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

// RunsToTableData converts journal runs to table format.
func RunsToTableData(runs []journal.RunSummary) Data {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		changed := r.Counts[pkgsync.StateApplied] + r.Counts[pkgsync.StateReported]
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Time.Local().Format(time.DateTime),
			r.Mode,
			strconv.FormatBool(r.DryRun),
			strconv.Itoa(changed),
			strconv.Itoa(r.Counts[pkgsync.StateFailed]),
		})
	}
	return Data{
		Headers:         []string{"Run", "Started", "Mode", "Dry Run", "Changed", "Failed"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight},
	}
}

// ReviewToTableData converts pending review items to table format.
func ReviewToTableData(items []journal.ReviewItem) Data {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		names := make([]string, 0, len(item.Candidates))
		for _, c := range item.Candidates {
			names = append(names, fmt.Sprintf("%s [%s] (%d)", c.Record.Name, c.Record.ExternalID, c.Score))
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.StudioID,
			item.Name,
			item.Source.String(),
			strings.Join(names, "\n"),
		})
	}
	return Data{
		Headers:         []string{"ID", "Studio ID", "Studio", "Source", "Candidates"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

func parentCell(o pkgsync.Outcome) string {
	switch {
	case o.CreatedParentID != "":
		return "created " + o.CreatedParentID
	case o.ParentChange != nil:
		return o.ParentChange.String()
	default:
		return "-"
	}
}

func details(o pkgsync.Outcome) string {
	lines := make([]string, 0, len(o.FieldChanges)+len(o.Warnings)+1)
	for _, c := range o.FieldChanges {
		lines = append(lines, c.String())
	}
	for _, w := range o.Warnings {
		lines = append(lines, "warning: "+w)
	}
	if o.Error != "" {
		lines = append(lines, "error: "+o.Error)
	}
	if len(lines) == 0 {
		return "-"
	}
	return strings.Join(lines, "\n")
}

func joinSources(ids []sources.ID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
