package network

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blaesus/ctbc/pkg/wire"
	"github.com/blaesus/ctbc/pkg/wire/payload"
)

func encodeMsg(t *testing.T, p payload.Payload) []byte {
	t.Helper()
	raw, err := wire.Encode(wire.MagicMainnet, p)
	require.NoError(t, err)
	return raw
}

func TestFramerDecodesSingleMessage(t *testing.T) {
	f := NewFramer(1024, wire.MagicMainnet, zap.NewNop())
	raw := encodeMsg(t, &payload.PingPayload{Nonce: 99})

	var got []*wire.Message
	require.NoError(t, f.Feed(raw, func(m *wire.Message) { got = append(got, m) }))
	require.Len(t, got, 1)
	require.Equal(t, "ping", got[0].Command)
	require.Equal(t, 0, f.Buffered())
}

func TestFramerHandlesFragmentedHeader(t *testing.T) {
	f := NewFramer(1024, wire.MagicMainnet, zap.NewNop())
	raw := encodeMsg(t, &payload.PongPayload{Nonce: 7})

	var got []*wire.Message
	// Feed fewer than HeaderSize bytes first; the framer must not attempt
	// to parse a header until all of it has arrived.
	require.NoError(t, f.Feed(raw[:wire.HeaderSize-1], func(m *wire.Message) { got = append(got, m) }))
	require.Empty(t, got)
	require.Equal(t, wire.HeaderSize-1, f.Buffered())

	require.NoError(t, f.Feed(raw[wire.HeaderSize-1:], func(m *wire.Message) { got = append(got, m) }))
	require.Len(t, got, 1)
	require.Equal(t, "pong", got[0].Command)
}

func TestFramerResyncsPastGarbage(t *testing.T) {
	f := NewFramer(1024, wire.MagicMainnet, zap.NewNop())
	raw := encodeMsg(t, &payload.VerackPayload{})

	garbage := []byte{0x00, 0x11, 0x22, 0x33, 0x44}
	segment := append(append([]byte{}, garbage...), raw...)

	var got []*wire.Message
	require.NoError(t, f.Feed(segment, func(m *wire.Message) { got = append(got, m) }))
	require.Len(t, got, 1)
	require.Equal(t, "verack", got[0].Command)
}

func TestFramerDiscardsCorruptFrameButKeepsConnection(t *testing.T) {
	f := NewFramer(1024, wire.MagicMainnet, zap.NewNop())
	bad := encodeMsg(t, &payload.PingPayload{Nonce: 1})
	bad[wire.HeaderSize] ^= 0xff // corrupt the payload, header checksum now mismatches
	good := encodeMsg(t, &payload.PongPayload{Nonce: 2})

	var got []*wire.Message
	require.NoError(t, f.Feed(append(bad, good...), func(m *wire.Message) { got = append(got, m) }))
	require.Len(t, got, 1)
	require.Equal(t, "pong", got[0].Command)
}

func TestFramerMultipleMessagesInOneSegment(t *testing.T) {
	f := NewFramer(1024, wire.MagicMainnet, zap.NewNop())
	a := encodeMsg(t, &payload.PingPayload{Nonce: 1})
	b := encodeMsg(t, &payload.PingPayload{Nonce: 2})
	c := encodeMsg(t, &payload.PingPayload{Nonce: 3})

	var got []*wire.Message
	require.NoError(t, f.Feed(append(append(a, b...), c...), func(m *wire.Message) { got = append(got, m) }))
	require.Len(t, got, 3)
}

func TestFramerRejectsOversizeFrame(t *testing.T) {
	raw := encodeMsg(t, &payload.PingPayload{Nonce: 1})
	// Capacity fits a bare header but not the full frame this header
	// declares, so the oversize check must fire as soon as the header is
	// parsed rather than waiting for the rest of the frame to arrive.
	f := NewFramer(len(raw)-1, wire.MagicMainnet, zap.NewNop())

	err := f.Feed(raw[:wire.HeaderSize], func(*wire.Message) {})
	require.ErrorIs(t, err, ErrOversizeFrame)
}

func TestFramerRejectsSegmentOverflow(t *testing.T) {
	f := NewFramer(8, wire.MagicMainnet, zap.NewNop())
	err := f.Feed(make([]byte, 9), func(*wire.Message) {})
	require.ErrorIs(t, err, ErrFrameOverflow)
}
