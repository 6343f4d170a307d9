package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaderRoundTrip(t *testing.T) {
	h := Header{
		Magic:    MagicMainnet,
		Command:  newCommandField("version"),
		Length:   42,
		Checksum: [4]byte{1, 2, 3, 4},
	}
	parsed := ParseHeader(h.Bytes())
	require.Equal(t, h, parsed)
	require.Equal(t, "version", parsed.CommandString())
}

func TestParseHeaderPanicsOnShortBuffer(t *testing.T) {
	require.Panics(t, func() {
		ParseHeader(make([]byte, HeaderSize-1))
	})
}

func TestCommandStringTrimsPadding(t *testing.T) {
	h := Header{Command: newCommandField("ping")}
	require.Equal(t, "ping", h.CommandString())
}
