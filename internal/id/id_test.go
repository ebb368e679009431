package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEntryID(t *testing.T) {
	tests := []struct {
		year, month, seq int
		want             string
	}{
		{2025, 1, 1, "2025-01-001"},
		{2025, 12, 99, "2025-12-099"},
		{2024, 6, 1234, "2024-06-1234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEntryID(tt.year, tt.month, tt.seq))
	}

	assert.Equal(t, "2024-06-007", EntryIDFor(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), 7))
}

func TestFormatLegID(t *testing.T) {
	tests := []struct {
		leg  int
		want string
	}{
		{0, "2025-01-001a"},
		{1, "2025-01-001b"},
		{25, "2025-01-001z"},
		{26, "2025-01-001aa"},
		{27, "2025-01-001ab"},
	}
	for _, tt := range tests {
		got := FormatLegID("2025-01-001", tt.leg)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, "2025-01-001", EntryGroup(got))
	}
}

func TestParseEntryID(t *testing.T) {
	tests := []struct {
		input               string
		wantYear, wantMonth int
		wantSeq             int
	}{
		{"2025-01-001", 2025, 1, 1},
		{"2025-12-099", 2025, 12, 99},
		{"2025-01-001a", 2025, 1, 1},
		{"2024-06-012ab", 2024, 6, 12},
	}
	for _, tt := range tests {
		year, month, seq, err := ParseEntryID(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.wantYear, year)
		assert.Equal(t, tt.wantMonth, month)
		assert.Equal(t, tt.wantSeq, seq)
	}
}

func TestParseEntryID_Errors(t *testing.T) {
	for _, input := range []string{"", "not-valid", "2025-01", "xxxx-01-001", "2025-13-001"} {
		_, _, _, err := ParseEntryID(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestNextSeq(t *testing.T) {
	ids := []string{"2024-06-001a", "2024-06-001b", "2024-06-003a", "2024-07-009a", "garbage"}
	assert.Equal(t, 4, NextSeq(ids, 2024, 6))
	assert.Equal(t, 10, NextSeq(ids, 2024, 7))
	assert.Equal(t, 1, NextSeq(ids, 2024, 8))
	assert.Equal(t, 1, NextSeq(nil, 2024, 6))
}
