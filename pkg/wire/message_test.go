package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	wireio "github.com/blaesus/ctbc/pkg/io"
	"github.com/blaesus/ctbc/pkg/wire/payload"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &payload.PingPayload{Nonce: 0xdeadbeef}
	raw, err := Encode(MagicMainnet, p)
	require.NoError(t, err)
	require.True(t, len(raw) >= HeaderSize)

	header := ParseHeader(raw[:HeaderSize])
	require.Equal(t, "ping", header.CommandString())
	body := raw[HeaderSize : HeaderSize+int(header.Length)]
	require.True(t, VerifyChecksum(header, body))

	msg, err := Decode(header, body)
	require.NoError(t, err)
	require.Equal(t, "ping", msg.Command)
	require.Equal(t, p, msg.Payload)
}

func TestEncodeRejectsUnknownCommand(t *testing.T) {
	_, err := Encode(MagicMainnet, unknownPayload{})
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDecodeRejectsUnknownCommand(t *testing.T) {
	header := Header{Command: newCommandField("notarealcommand")}
	_, err := Decode(header, nil)
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	header := Header{Command: newCommandField("ping")}
	_, err := Decode(header, []byte{1, 2, 3}) // short of the 8-byte nonce
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestChecksumMismatchIsDetectable(t *testing.T) {
	p := &payload.PongPayload{Nonce: 7}
	raw, err := Encode(MagicMainnet, p)
	require.NoError(t, err)

	header := ParseHeader(raw[:HeaderSize])
	body := raw[HeaderSize:]
	require.True(t, VerifyChecksum(header, body))

	corrupted := append([]byte{}, body...)
	corrupted[0] ^= 0xff
	require.False(t, VerifyChecksum(header, corrupted))
}

type unknownPayload struct{}

func (unknownPayload) Command() string                        { return "notarealcommand" }
func (unknownPayload) EncodeBinary(w *wireio.BinWriter)        {}
func (unknownPayload) DecodeBinary(r *wireio.BinReader)        {}
