package common

import (
	"context"
	"testing"
	"time"

	"homesync/internal/appers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericFromString2Strict(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "integer", in: "21", want: "21.00"},
		{name: "one fraction digit", in: "21.5", want: "21.50"},
		{name: "two fraction digits", in: "21.55", want: "21.55"},
		{name: "comma separator", in: "-3,25", want: "-3.25"},
		{name: "plus sign", in: "+0.99", want: "0.99"},
		{name: "surrounding spaces", in: "  18.20  ", want: "18.20"},
		{name: "leading zeros trimmed", in: "007.10", want: "7.10"},
		{name: "three fraction digits", in: "21.555", wantErr: appers.ErrScale},
		{name: "not a number", in: "warm", wantErr: appers.ErrFormat},
		{name: "exponent rejected", in: "1e3", wantErr: appers.ErrFormat},
		{name: "too many integer digits", in: "12345678901234567.00", wantErr: appers.ErrPrecision},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := NumericFromString2Strict(tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.True(t, n.Valid)

			s, err := NumericToString(n)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s)
		})
	}
}

func TestNumericFromString2Strict_Empty(t *testing.T) {
	n, err := NumericFromString2Strict("   ")
	require.NoError(t, err)
	assert.False(t, n.Valid)

	s, err := NumericToString(n)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestPgInterval(t *testing.T) {
	assert.Equal(t, "30 seconds", PgInterval(30*time.Second))
	assert.Equal(t, "90 seconds", PgInterval(90*time.Second))
	assert.Equal(t, "0 seconds", PgInterval(500*time.Millisecond))
}

func TestNextBackoffWithJitter(t *testing.T) {
	// base = 1s << attempts, результат в [base/2, base)
	for attempts := 0; attempts < 10; attempts++ {
		base := time.Second << attempts
		for i := 0; i < 50; i++ {
			d := NextBackoffWithJitter(attempts)
			assert.GreaterOrEqual(t, d, base/2, "attempts=%d", attempts)
			assert.Less(t, d, base, "attempts=%d", attempts)
		}
	}
}

func TestNextBackoffWithJitter_Capped(t *testing.T) {
	limit := 30 * time.Minute
	for i := 0; i < 50; i++ {
		d := NextBackoffWithJitter(60)
		assert.Less(t, d, limit)
	}
	// отрицательное значение не роняет
	assert.Positive(t, NextBackoffWithJitter(-1))
}

func TestSleepCtx(t *testing.T) {
	require.NoError(t, SleepCtx(context.Background(), 0))
	require.NoError(t, SleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepCtx(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}
