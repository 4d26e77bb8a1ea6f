package lockfreestack

import (
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackoff(t *testing.T) {
	tests := []struct {
		in   string
		want Backoff
	}{
		{"", BackoffNone},
		{"none", BackoffNone},
		{"Spin", BackoffSpin},
		{" sleep ", BackoffSleep},
	}
	for _, tt := range tests {
		got, err := ParseBackoff(tt.in)
		require.NoErrorf(t, err, "ParseBackoff(%q)", tt.in)
		assert.Equalf(t, tt.want, got, "ParseBackoff(%q)", tt.in)
	}
}

func TestParseBackoffUnknown(t *testing.T) {
	_, err := ParseBackoff("exponential")
	assert.ErrorIs(t, err, ErrUnknownBackoff)
}

func TestBackoffStringRoundTrip(t *testing.T) {
	for _, b := range []Backoff{BackoffNone, BackoffSpin, BackoffSleep} {
		got, err := ParseBackoff(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	assert.Equal(t, "Backoff(9)", Backoff(9).String())
}

func TestSleepBackoffGrowsLinearlyToCap(t *testing.T) {
	b := newSleepBackoff()
	require.Equal(t, sleepBackoffBase, b.Duration())

	// Block n holds n waits of n*base.
	for block := 1; block <= 4; block++ {
		for i := 0; i < block; i++ {
			require.Equalf(t, time.Duration(block)*sleepBackoffBase, b.Duration(), "block %d wait %d", block, i)
			b.Wait()
		}
	}

	capBlock := int(sleepBackoffMax / sleepBackoffBase)
	for b.Block() <= capBlock+1 {
		require.LessOrEqual(t, b.Duration(), sleepBackoffMax)
		b.Wait()
	}
	assert.Equal(t, sleepBackoffMax, b.Duration())

	b.Reset()
	assert.Equal(t, sleepBackoffBase, b.Duration())
}

func TestSleepBackoffStaysPushScale(t *testing.T) {
	b := newSleepBackoff()
	assert.Less(t, b.Duration(), iox.DefaultBackoffBase)
	assert.LessOrEqual(t, sleepBackoffMax, 10*time.Microsecond)
}
