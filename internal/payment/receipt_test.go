package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildReceipt(t *testing.T) {
	now := time.UnixMilli(1735689600123)

	tests := []struct {
		name   string
		userID string
		want   string
	}{
		{"short id", "42", "sub_42_1735689600123"},
		{"id at cap", "1234567890", "sub_1234567890_1735689600123"},
		{"long id cut to cap", "64f1c2a9e8b7d6c5b4a39281", "sub_64f1c2a9e8_1735689600123"},
		{"empty id", "", "sub__1735689600123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildReceipt(tt.userID, now)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), receiptMaxLen)
		})
	}
}

func TestBuildReceipt_KeepsTimestamp(t *testing.T) {
	now := time.UnixMilli(1735689600123)
	userID := strings.Repeat("u", 100)

	got := BuildReceipt(userID, now)

	assert.True(t, strings.HasPrefix(got, "sub_"))
	assert.True(t, strings.HasSuffix(got, "_1735689600123"))
	assert.LessOrEqual(t, len(got), receiptMaxLen)
}

func TestBuildReceipt_FarFutureStillFits(t *testing.T) {
	now := time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

	got := BuildReceipt("1234567890abcdef", now)

	assert.LessOrEqual(t, len(got), receiptMaxLen)
	assert.True(t, strings.HasSuffix(got, "_253402300799000"))
}
