package memnet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMotorMove(t *testing.T) {
	require := require.New(t)

	net := NewNetwork()
	defer net.Close()

	ctx := context.Background()

	m, err := net.LoadMotor("demo:m1")
	require.NoError(err)

	require.NoError(m.Move(ctx, 2.5))
	require.False(m.Moving())

	pos, err := m.Readback(ctx)
	require.NoError(err)
	require.Equal(2.5, pos)
	require.Equal(uint64(1), m.MoveCount())

	require.NoError(m.Move(ctx, -1.25))
	pos, err = m.Readback(ctx)
	require.NoError(err)
	require.Equal(-1.25, pos)
	require.Equal(uint64(2), m.MoveCount())
}

func TestMotorSettleDelay(t *testing.T) {
	require := require.New(t)

	net := NewNetwork()
	defer net.Close()

	m, err := net.LoadMotor("demo:m1", WithSettleDelay(20*time.Millisecond))
	require.NoError(err)

	t.Run("move blocks until settled", func(t *testing.T) {
		start := time.Now()
		require.NoError(m.Move(context.Background(), 1.0))
		require.GreaterOrEqual(time.Since(start), 20*time.Millisecond)

		pos, err := m.Readback(context.Background())
		require.NoError(err)
		require.Equal(1.0, pos)
	})

	t.Run("canceled move keeps last settled position", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()

		err := m.Move(ctx, 5.0)
		require.ErrorIs(err, context.DeadlineExceeded)
		require.False(m.Moving())

		pos, err := m.Readback(context.Background())
		require.NoError(err)
		require.Equal(1.0, pos)
	})
}
