package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCronTime(t *testing.T) {
	from := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)

	next, err := NextCronTime("0 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), next)

	_, err = NextCronTime("not a cron", from)
	assert.Error(t, err)
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr  string
		valid bool
	}{
		{"0 * * * *", true},
		{"*/15 * * * *", true},
		{"0 3 * * 1", true},
		{"* * * * * *", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
