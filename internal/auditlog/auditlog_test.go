package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:  testTime,
		CompanyID:  "acme",
		Stage:      StageClassify,
		Decision:   "reference",
		Confidence: 95,
		InputHash:  "00ff00ff00ff00ff",
		RecordID:   "tx-1",
		Reasoning:  []string{"reference: INV-1042 matches open invoice #1042", "needs no review"},
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])

	raw, err := os.ReadFile(filepath.Join(dir, "logs", "decision-log.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), Header+"\n"))
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Stage = StageReconcile
	e2.Decision = "exact"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StageClassify, entries[0].Stage)
	assert.Equal(t, StageReconcile, entries[1].Stage)
}

func TestAppend_NothingToWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, nil))
	_, err := os.Stat(filepath.Join(dir, "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	row := MarshalEntry(testEntry())

	_, err := UnmarshalEntry(row[:3])
	assert.Error(t, err)

	bad := append([]string(nil), row...)
	bad[colTimestamp] = "yesterday"
	_, err = UnmarshalEntry(bad)
	assert.ErrorContains(t, err, "parsing timestamp")

	bad = append([]string(nil), row...)
	bad[colConfidence] = "high"
	_, err = UnmarshalEntry(bad)
	assert.ErrorContains(t, err, "parsing confidence")
}

func TestBuffer_Flush(t *testing.T) {
	dir := t.TempDir()
	var b Buffer
	b.Record(testEntry())
	b.Record(testEntry())
	require.NoError(t, b.Flush(dir))
	assert.Empty(t, b.Entries())

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
