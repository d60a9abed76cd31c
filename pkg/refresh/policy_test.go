package refresh

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.False(t, p.Enabled)
	assert.Equal(t, time.Second, p.Interval)
	assert.NoError(t, p.Validate())
	assert.Equal(t, "off 1s", p.String())
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		interval time.Duration
		wantErr  bool
	}{
		{0, true},
		{99 * time.Millisecond, true},
		{MinInterval, false},
		{time.Second, false},
		{MaxInterval, false},
		{MaxInterval + time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.interval.String(), func(t *testing.T) {
			err := Policy{Enabled: true, Interval: tt.interval}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInterval)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyFromSeconds(t *testing.T) {
	tests := []struct {
		secs float64
		want time.Duration
	}{
		{0.1, 100 * time.Millisecond},
		{1.0, time.Second},
		{1.04, time.Second},
		{2.26, 2300 * time.Millisecond},
		{5.0, 5 * time.Second},
		{5.04, 5 * time.Second},
	}

	for _, tt := range tests {
		p, err := PolicyFromSeconds(true, tt.secs)
		require.NoError(t, err, "secs=%v", tt.secs)
		assert.Equal(t, tt.want, p.Interval, "secs=%v", tt.secs)
		assert.True(t, p.Enabled)
	}

	for _, secs := range []float64{0, 0.04, 5.1, -1, math.NaN(), math.Inf(1)} {
		_, err := PolicyFromSeconds(false, secs)
		assert.ErrorIs(t, err, ErrInvalidInterval, "secs=%v", secs)
	}
}

func TestPolicySeconds(t *testing.T) {
	p := Policy{Interval: 1500 * time.Millisecond}
	assert.InDelta(t, 1.5, p.Seconds(), 1e-9)
}
