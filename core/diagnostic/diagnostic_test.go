package diagnostic_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/zentypes/core/diagnostic"
)

func TestDiagnostics_Buckets(t *testing.T) {
	var d diagnostic.Diagnostics
	d.AddInfo(diagnostic.CodeResolutionMiss, "no such symbol", "a/A", "ref")
	d.AddWarning(diagnostic.CodeUnresolvedMap, "map without keys", "a/A", "meta")
	assert.False(t, d.HasErrors())
	assert.NoError(t, d.Error())

	d.AddError(diagnostic.CodeUnrecognizedShape, "unknown kind", "a/A", "x.y")
	assert.True(t, d.HasErrors())
	assert.Equal(t, 3, d.Len())

	all := d.All()
	require.Len(t, all, 3)
	assert.Equal(t, diagnostic.SeverityError, all[0].Severity)
	assert.Equal(t, diagnostic.SeverityInfo, all[2].Severity)

	err := d.Error()
	require.Error(t, err)
	assert.Equal(t, "[a/A] x.y: [unrecognized-shape] unknown kind", err.Error())
}

func TestDiagnostics_Merge(t *testing.T) {
	var a, b diagnostic.Diagnostics
	a.AddWarning("w", "one", "", "")
	b.AddError("e", "two", "", "")
	a.Merge(b)

	assert.Len(t, a.Warnings, 1)
	assert.Len(t, a.Errors, 1)
}

func TestDiagnostic_StringWithRaw(t *testing.T) {
	d := diagnostic.Diagnostic{Code: "c", Message: "m", Raw: `{"type":"zen/keyword"}`}
	assert.Equal(t, `[c] m {"type":"zen/keyword"}`, d.String())
}

func TestDiagnostics_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	var d diagnostic.Diagnostics
	d.Add(diagnostic.Diagnostic{
		Severity:  diagnostic.SeverityError,
		Code:      diagnostic.CodeUnrecognizedShape,
		Message:   "unrecognized node shape",
		Symbol:    "a/A",
		FieldPath: "x",
		Raw:       `{"type":"zen/keyword"}`,
	})
	d.Log(logger)

	out := buf.String()
	assert.True(t, strings.Contains(out, `"level":"error"`), out)
	assert.True(t, strings.Contains(out, `"node":{"type":"zen/keyword"}`), out)
	assert.True(t, strings.Contains(out, `"symbol":"a/A"`), out)
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "info", diagnostic.SeverityInfo.String())
	assert.Equal(t, "warning", diagnostic.SeverityWarning.String())
	assert.Equal(t, "error", diagnostic.SeverityError.String())
	assert.Equal(t, "unknown", diagnostic.Severity(9).String())
}
