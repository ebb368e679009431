package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatEntryID returns an entry ID like "2025-01-001".
func FormatEntryID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// EntryIDFor returns the entry ID for the seq-th entry of date's month.
func EntryIDFor(date time.Time, seq int) string {
	return FormatEntryID(date.Year(), int(date.Month()), seq)
}

// FormatLegID returns a leg ID like "2025-01-001a" (leg 0='a', 1='b', etc.).
// Past 'z' the suffix continues as "aa", "ab", ...
func FormatLegID(entryID string, leg int) string {
	if leg < 26 {
		return entryID + string(rune('a'+leg))
	}
	return FormatLegID(entryID+string(rune('a'+leg/26-1)), leg%26)
}

// ParseEntryID parses "2025-01-001" (optionally with a leg suffix) into year, month, seq.
func ParseEntryID(id string) (year, month, seq int, err error) {
	base := EntryGroup(id)

	parts := strings.SplitN(base, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid entry ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in entry ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q", id)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in entry ID %q: %w", id, err)
	}

	return year, month, seq, nil
}

// EntryGroup strips the leg suffix from a leg ID.
// "2025-01-001a" -> "2025-01-001"
func EntryGroup(legID string) string {
	i := len(legID)
	for i > 0 && legID[i-1] >= 'a' && legID[i-1] <= 'z' {
		i--
	}
	return legID[:i]
}

// NextSeq returns one past the highest sequence among ids belonging to
// year/month. Unparseable IDs are ignored.
func NextSeq(ids []string, year, month int) int {
	maxSeq := 0
	for _, s := range ids {
		y, m, seq, err := ParseEntryID(s)
		if err != nil || y != year || m != month {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}
