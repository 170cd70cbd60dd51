package timesource

import (
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronoshift/internal/logging"
	"github.com/aretw0/chronoshift/pkg/domain"
)

func TestFetch_CapturesReference(t *testing.T) {
	serverTime := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewClient(time.Second, logging.NewNop())
	c.query = func(host string, opts ntp.QueryOptions) (*ntp.Response, error) {
		assert.Equal(t, "10.0.0.5", host)
		assert.Equal(t, 123, opts.Port)
		return &ntp.Response{
			Time:          serverTime,
			ReferenceTime: serverTime,
			Stratum:       1,
			ClockOffset:   -3 * time.Hour,
		}, nil
	}

	ref, err := c.Fetch("10.0.0.5", 0)
	require.NoError(t, err, "port 0 must default to 123")
	assert.Equal(t, serverTime, ref.Instant)
	assert.Equal(t, -3*time.Hour, ref.Offset)
}

func TestFetch_QueryFailure(t *testing.T) {
	c := NewClient(time.Second, logging.NewNop())
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		return nil, errors.New("i/o timeout")
	}

	_, err := c.Fetch("10.0.0.5", 8123)
	require.ErrorIs(t, err, domain.ErrTimeSourceUnreachable)
	assert.Contains(t, err.Error(), "10.0.0.5:8123")
}

func TestFetch_RejectsInvalidResponse(t *testing.T) {
	c := NewClient(time.Second, logging.NewNop())
	c.query = func(string, ntp.QueryOptions) (*ntp.Response, error) {
		// Stratum 0 is a kiss-of-death reply.
		return &ntp.Response{Time: time.Now(), Stratum: 0}, nil
	}

	_, err := c.Fetch("10.0.0.5", 123)
	require.ErrorIs(t, err, domain.ErrTimeSourceUnreachable)
}

// Target must advance with the local monotonic clock so a technique applied
// seconds after capture still lands on the server's current time.
func TestReference_TargetAdvances(t *testing.T) {
	instant := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	ref := NewFixedReference(instant)

	time.Sleep(20 * time.Millisecond)
	target := ref.Target()

	assert.True(t, target.After(instant), "target tracks elapsed time since capture")
	assert.WithinDuration(t, instant, target, time.Second)
}
