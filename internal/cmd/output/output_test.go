package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/studiosync/pkg/catalogs"
	"github.com/agentstation/studiosync/pkg/reconcile"
	"github.com/agentstation/studiosync/pkg/sources"
	pkgsync "github.com/agentstation/studiosync/pkg/sync"
)

func testReport() *pkgsync.Report {
	r := pkgsync.NewReport("run-1", pkgsync.Defaults(), []sources.ID{"https://stashdb.org/graphql"})
	o := pkgsync.NewOutcome(catalogs.Studio{ID: "7", Name: "Alpha Studio"})
	o.State = pkgsync.StateApplied
	o.FieldChanges = []reconcile.FieldChange{{Field: reconcile.FieldURL, Source: "https://stashdb.org/graphql", New: "https://alpha.example"}}
	r.Add(o)
	r.Add(pkgsync.Outcome{StudioID: "8", Name: "Beta", State: pkgsync.StateSkippedNoMatch})
	r.Finish()
	return r
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
	assert.True(t, DetectFormat("wide").IsTable())
	assert.False(t, DetectFormat("json").IsTable())
}

func TestWriteFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, write(&buf, FormatTable, map[string]int{"applied": 1}))
	assert.JSONEq(t, `{"applied": 1}`, buf.String())
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, FormatJSON, testReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	outcomes, ok := decoded["outcomes"].([]any)
	require.True(t, ok)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "applied", outcomes[0].(map[string]any)["outcome"])
}

func TestReportYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, FormatYAML, testReport()))
	assert.Contains(t, buf.String(), "run_id: run-1")
	assert.Contains(t, buf.String(), "outcome: skipped_no_match")
}

func TestReportTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, FormatWide, testReport()))
	out := buf.String()
	assert.Contains(t, out, "Alpha Studio")
	assert.Contains(t, out, "Skipped No Match")
	assert.Contains(t, out, "https://alpha.example")
}

func TestSourcesJSON(t *testing.T) {
	list, err := sources.NewList(sources.NewStatic("https://stashdb.org/graphql", "StashDB"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Sources(&buf, FormatJSON, list))
	assert.Contains(t, buf.String(), `"priority": 1`)
	assert.Contains(t, buf.String(), `"name": "StashDB"`)
}
