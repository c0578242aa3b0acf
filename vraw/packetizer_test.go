package vraw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFrame fills a deterministic UYVY frame for the given geometry.
func testFrame(height, width int) []byte {
	buf := make([]byte, height*width*2)
	for i := range buf {
		buf[i] = byte((i*7 + i/251) % 256)
	}
	return buf
}

// reassemble rebuilds a frame from packets by line header addressing.
func reassemble(t *testing.T, height, width int, packets []*Packet) []byte {
	t.Helper()
	stride := width * 2
	out := make([]byte, height*stride)
	for _, pkt := range packets {
		off := 0
		for _, lh := range pkt.PayloadHeader.Lines {
			pos := int(lh.Number)*stride + int(lh.Offset)*2
			copy(out[pos:pos+int(lh.Length)], pkt.Pixels[off:off+int(lh.Length)])
			off += int(lh.Length)
		}
		require.Equal(t, off, len(pkt.Pixels))
	}
	return out
}

func TestNewPacketizerValidation(t *testing.T) {
	tests := []struct {
		name           string
		height, width  int
		frameRate      int
		linesPerPacket int
		mtu            int
	}{
		{name: "zero height", height: 0, width: 640, frameRate: 25, linesPerPacket: 10, mtu: DefaultMTU},
		{name: "negative width", height: 480, width: -2, frameRate: 25, linesPerPacket: 10, mtu: DefaultMTU},
		{name: "odd width", height: 480, width: 641, frameRate: 25, linesPerPacket: 10, mtu: DefaultMTU},
		{name: "height beyond header range", height: 70000, width: 640, frameRate: 25, linesPerPacket: 10, mtu: DefaultMTU},
		{name: "stride beyond header range", height: 480, width: 40000, frameRate: 25, linesPerPacket: 10, mtu: DefaultMTU},
		{name: "zero frame rate", height: 480, width: 640, frameRate: 0, linesPerPacket: 10, mtu: DefaultMTU},
		{name: "zero lines per packet", height: 480, width: 640, frameRate: 25, linesPerPacket: 0, mtu: DefaultMTU},
		{name: "lines per packet beyond capacity", height: 480, width: 640, frameRate: 25, linesPerPacket: 11, mtu: DefaultMTU},
		{name: "mtu smaller than the header", height: 480, width: 640, frameRate: 25, linesPerPacket: 10, mtu: HeaderSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPacketizer(tt.height, tt.width, DefaultSSRC, tt.frameRate, tt.linesPerPacket, tt.mtu)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestPacketizeFrameTenLinesPerPacket(t *testing.T) {
	// 480 lines at 10 per packet wants 48 packets; the budget must hold
	// ten whole 960 byte lines plus the header.
	pk, err := NewPacketizer(480, 480, DefaultSSRC, DefaultFrameRate, 10, 9700)
	require.NoError(t, err)

	frame := testFrame(480, 480)
	packets, err := pk.PacketizeFrame(frame)
	require.NoError(t, err)
	require.Len(t, packets, 48)
	assert.Equal(t, 48, pk.PacketsPerFrame())

	for i, pkt := range packets {
		assert.Equal(t, i == len(packets)-1, pkt.Header.Marker, "marker on packet %d", i)
		assert.Equal(t, uint16(i), pkt.Header.SequenceNumber)
		assert.Equal(t, uint16(0), pkt.PayloadHeader.ExtendedSequence)
		assert.Equal(t, uint32(ClockRate/DefaultFrameRate), pkt.Header.Timestamp)
		assert.Equal(t, uint32(DefaultSSRC), pkt.Header.SSRC)

		require.Len(t, pkt.PayloadHeader.Lines, 10)
		for j, lh := range pkt.PayloadHeader.Lines {
			assert.Equal(t, uint16(960), lh.Length)
			assert.Equal(t, uint16(i*10+j), lh.Number)
			assert.Equal(t, uint16(0), lh.Offset)
		}
		assert.Len(t, pkt.Pixels, 9600)
	}

	assert.Equal(t, frame, reassemble(t, 480, 480, packets))
}

func TestPacketizeFrameClosesPacketOnBudget(t *testing.T) {
	// A 480 pixel line is 960 bytes; the default budget holds one whole
	// line but not two, so packets carry one line each and never split.
	pk, err := NewPacketizer(6, 480, DefaultSSRC, DefaultFrameRate, 10, DefaultMTU)
	require.NoError(t, err)

	frame := testFrame(6, 480)
	packets, err := pk.PacketizeFrame(frame)
	require.NoError(t, err)
	require.Len(t, packets, 6)

	for i, pkt := range packets {
		require.Len(t, pkt.PayloadHeader.Lines, 1)
		lh := pkt.PayloadHeader.Lines[0]
		assert.Equal(t, uint16(960), lh.Length)
		assert.Equal(t, uint16(i), lh.Number)
		assert.Equal(t, uint16(0), lh.Offset)
	}

	assert.Equal(t, frame, reassemble(t, 6, 480, packets))
}

func TestPacketizeFrameSplitsLinesWiderThanBudget(t *testing.T) {
	// A 640 pixel line is 1280 bytes, wider than the 1226 byte budget, so
	// every line splits and continuation fragments carry pixel offsets.
	pk, err := NewPacketizer(4, 640, DefaultSSRC, DefaultFrameRate, 10, DefaultMTU)
	require.NoError(t, err)

	frame := testFrame(4, 640)
	packets, err := pk.PacketizeFrame(frame)
	require.NoError(t, err)
	require.Len(t, packets, 5)
	assert.Equal(t, 5, pk.PacketsPerFrame())

	first := packets[0]
	require.Len(t, first.PayloadHeader.Lines, 1)
	assert.Equal(t, LineHeader{Length: 1224, Number: 0, Offset: 0}, first.PayloadHeader.Lines[0])

	second := packets[1]
	require.Len(t, second.PayloadHeader.Lines, 2)
	assert.Equal(t, LineHeader{Length: 56, Number: 0, Offset: 612}, second.PayloadHeader.Lines[0])
	assert.Equal(t, LineHeader{Length: 1168, Number: 1, Offset: 0}, second.PayloadHeader.Lines[1])

	for _, pkt := range packets {
		assert.LessOrEqual(t, HeaderSize+len(pkt.Pixels), DefaultMTU)
	}
	assert.True(t, packets[len(packets)-1].Header.Marker)

	assert.Equal(t, frame, reassemble(t, 4, 640, packets))
}

func TestPacketizeFrameRejectsWrongBufferSize(t *testing.T) {
	pk, err := NewPacketizer(480, 640, DefaultSSRC, DefaultFrameRate, 10, DefaultMTU)
	require.NoError(t, err)

	_, err = pk.PacketizeFrame(make([]byte, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFrameSize)
}

func TestSequenceAndTimestampAcrossFrames(t *testing.T) {
	pk, err := NewPacketizer(48, 64, DefaultSSRC, DefaultFrameRate, 10, DefaultMTU)
	require.NoError(t, err)

	frame := testFrame(48, 64)
	perFrame := pk.PacketsPerFrame()

	seen := make(map[uint16]bool)
	next := uint16(0)
	for n := 1; n <= 3; n++ {
		packets, err := pk.PacketizeFrame(frame)
		require.NoError(t, err)
		require.Len(t, packets, perFrame)

		for _, pkt := range packets {
			assert.Equal(t, next, pkt.Header.SequenceNumber)
			assert.False(t, seen[pkt.Header.SequenceNumber])
			seen[pkt.Header.SequenceNumber] = true
			next++

			assert.Equal(t, uint32(n)*uint32(ClockRate/DefaultFrameRate), pkt.Header.Timestamp)
		}
	}

	assert.Len(t, seen, 3*perFrame)
	assert.Equal(t, uint32(3*perFrame), pk.Sequence())
}

func TestExtendedSequenceSpansWraparound(t *testing.T) {
	pk, err := NewPacketizer(2, 64, DefaultSSRC, DefaultFrameRate, 10, DefaultMTU)
	require.NoError(t, err)
	pk.sequence = 0xFFFF

	packets, err := pk.PacketizeFrame(testFrame(2, 64))
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, uint16(0xFFFF), packets[0].Header.SequenceNumber)
	assert.Equal(t, uint16(0), packets[0].PayloadHeader.ExtendedSequence)

	packets, err = pk.PacketizeFrame(testFrame(2, 64))
	require.NoError(t, err)
	assert.Equal(t, uint16(0), packets[0].Header.SequenceNumber)
	assert.Equal(t, uint16(1), packets[0].PayloadHeader.ExtendedSequence)
}

func TestUpdateHeaderSeedsWholeLineEntry(t *testing.T) {
	pk, err := NewPacketizer(480, 480, 0xAA55AA55, DefaultFrameRate, 10, DefaultMTU)
	require.NoError(t, err)

	pkt := &Packet{}
	pk.UpdateHeader(pkt, 17, true, 7200, 0xAA55AA55)

	require.Len(t, pkt.PayloadHeader.Lines, 1)
	assert.Equal(t, LineHeader{Length: 960, Number: 17, Offset: 0}, pkt.PayloadHeader.Lines[0])
	assert.True(t, pkt.Header.Marker)
	assert.Equal(t, uint8(PayloadType), pkt.Header.PayloadType)
	assert.Equal(t, uint32(7200), pkt.Header.Timestamp)
	assert.Equal(t, uint32(0xAA55AA55), pkt.Header.SSRC)
	assert.Equal(t, uint32(1), pk.Sequence())
}

func TestPacketsPerFrameMatchesPacketizeFrame(t *testing.T) {
	tests := []struct {
		name           string
		height, width  int
		linesPerPacket int
		mtu            int
	}{
		{name: "ten whole lines per packet", height: 480, width: 480, linesPerPacket: 10, mtu: 9700},
		{name: "budget closes packets early", height: 480, width: 480, linesPerPacket: 10, mtu: DefaultMTU},
		{name: "lines split across packets", height: 480, width: 640, linesPerPacket: 10, mtu: DefaultMTU},
		{name: "single line slot with splits", height: 8, width: 640, linesPerPacket: 1, mtu: DefaultMTU},
		{name: "small frame", height: 48, width: 64, linesPerPacket: 10, mtu: DefaultMTU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, err := NewPacketizer(tt.height, tt.width, DefaultSSRC, DefaultFrameRate, tt.linesPerPacket, tt.mtu)
			require.NoError(t, err)

			packets, err := pk.PacketizeFrame(testFrame(tt.height, tt.width))
			require.NoError(t, err)
			assert.Len(t, packets, pk.PacketsPerFrame())

			assert.Equal(t, testFrame(tt.height, tt.width), reassemble(t, tt.height, tt.width, packets))
		})
	}
}
