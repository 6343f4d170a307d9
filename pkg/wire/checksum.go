package wire

import "crypto/sha256"

// Checksum returns the first four bytes of the double-SHA256 digest of
// payload, matching the checksum field carried in every message header.
func Checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var out [4]byte
	copy(out[:], second[:4])
	return out
}

// VerifyChecksum reports whether header.Checksum matches payload's digest.
func VerifyChecksum(header Header, payload []byte) bool {
	return Checksum(payload) == header.Checksum
}
