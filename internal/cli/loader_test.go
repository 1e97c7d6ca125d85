package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRecordTypes(t *testing.T) {
	result, errs := LoadRecordTypes(schemaDir, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Types, 2)
	assert.Equal(t, "monitoring_hr", result.Types[0].Table)
	assert.Equal(t, "MonitoringHeartRate", result.Types[0].Name)
	assert.Len(t, result.Types[0].Stats, 2)
}

func TestLoadRecordTypesNoTables(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.cue", "package test\n\nversion: 1\n")

	_, errs := LoadRecordTypes(dir, LoadModeCollectAll)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no tables found")
}

func TestLoadRecordTypesFailFast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", `
package test

table: a: {columns: [{name: "x", type: "money"}]}
table: b: {columns: [{name: "y", type: "money"}]}
`)

	_, errs := LoadRecordTypes(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)

	_, errs = LoadRecordTypes(dir, LoadModeCollectAll)
	assert.Len(t, errs, 2)
}

func TestLoadRecordTypesBadCUE(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.cue", "package test\n\ntable: {\n")

	result, errs := LoadRecordTypes(dir, LoadModeCollectAll)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeLoadFailed)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, "E104", MapFieldToErrorCode("type"))
	assert.Equal(t, "E102", MapFieldToErrorCode("columns"))
}
