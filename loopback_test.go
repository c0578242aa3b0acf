package mediax

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DefenceX/vivoe-media-framework/pixel"
	"github.com/DefenceX/vivoe-media-framework/transport"
)

func TestLoopbackTransmitReceive(t *testing.T) {
	const height, width = 32, 32
	cfg := DefaultConfig(height, width)

	rx, err := New(cfg)
	require.NoError(t, err)
	rx.SetIngress("127.0.0.1", 0)
	require.NoError(t, rx.Open())
	defer rx.Close()

	port := rx.IngressAddr().(*net.UDPAddr).Port
	tx, err := New(cfg)
	require.NoError(t, err)
	tx.SetEgress("127.0.0.1", port)
	require.NoError(t, tx.Open())
	defer tx.Close()

	rgb := testRGB(height, width)
	n, err := tx.Transmit(rgb)
	require.NoError(t, err)
	assert.Positive(t, n)

	frame, err := rx.Receive(2 * time.Second)
	require.NoError(t, err)

	want := make([]byte, height*width*2)
	require.NoError(t, pixel.RGBToYUV(height, width, rgb, want))
	assert.Equal(t, want, frame.Data)
	assert.Equal(t, uint64(1), rx.FrameCount())

	// And back out to RGB for a consumer.
	out := make([]byte, height*width*3)
	require.NoError(t, frame.RGB(out))
}

func TestLoopbackZeroTimeoutReturnsWithinBound(t *testing.T) {
	rx, err := New(DefaultConfig(48, 64))
	require.NoError(t, err)
	rx.SetIngress("127.0.0.1", 0)
	require.NoError(t, rx.Open())
	defer rx.Close()

	start := time.Now()
	_, err = rx.Receive(0)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrTimeout)
	assert.Less(t, elapsed, 500*time.Millisecond, "zero timeout must not block")
}

func TestLoopbackPositiveTimeoutExpires(t *testing.T) {
	rx, err := New(DefaultConfig(48, 64))
	require.NoError(t, err)
	rx.SetIngress("127.0.0.1", 0)
	require.NoError(t, rx.Open())
	defer rx.Close()

	start := time.Now()
	_, err = rx.Receive(50 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
