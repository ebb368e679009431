package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawLineValidate(t *testing.T) {
	valid := RawLine{
		Date:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Description: "UPI ZOMATO",
		Amount:      decimal.RequireFromString("640"),
		Direction:   DirectionDebit,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		edit  func(l *RawLine)
		field string
	}{
		{"zero date", func(l *RawLine) { l.Date = time.Time{} }, "date"},
		{"blank description", func(l *RawLine) { l.Description = " \t" }, "description"},
		{"zero amount", func(l *RawLine) { l.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(l *RawLine) { l.Amount = decimal.RequireFromString("-1") }, "amount"},
		{"no direction", func(l *RawLine) { l.Direction = "" }, "direction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid
			tt.edit(&l)
			var le *LineError
			require.ErrorAs(t, l.Validate(), &le)
			assert.Equal(t, tt.field, le.Field)
		})
	}
}
