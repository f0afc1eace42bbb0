package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = Policy{MaxRetries: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func(int) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("503"), 0)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	permanent := errors.New("400 bad request")
	calls := 0
	err := Do(context.Background(), fast, func(int) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoGivesUp(t *testing.T) {
	cause := errors.New("429")
	calls := 0
	err := Do(context.Background(), fast, func(int) error {
		calls++
		return Transient(cause, 0)
	})
	assert.Equal(t, cause, err)
	assert.Equal(t, 4, calls)
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, DefaultPolicy, func(int) error {
		calls++
		return Transient(errors.New("timeout"), time.Hour)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDelayIsCapped(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, DefaultPolicy.Delay(0))
	assert.Equal(t, 400*time.Millisecond, DefaultPolicy.Delay(1))
	assert.Equal(t, 5*time.Second, DefaultPolicy.Delay(10))
	assert.Equal(t, 5*time.Second, DefaultPolicy.Delay(100))
}
