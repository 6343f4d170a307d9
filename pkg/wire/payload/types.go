// Package payload defines the wire representation of every message body
// exchanged over the peer-to-peer protocol, decoded and encoded through the
// binary primitives in pkg/io.
package payload

import (
	"encoding/hex"
	"fmt"
	"net"

	wireio "github.com/blaesus/ctbc/pkg/io"
)

// Hash is a 32-byte double-SHA256 digest, used for both block and
// transaction identity.
type Hash [32]byte

// String renders the hash in the conventional reversed (big-endian-looking)
// hex form used by block explorers.
func (h Hash) String() string {
	rev := make([]byte, len(h))
	for i, b := range h {
		rev[len(h)-1-i] = b
	}
	return hex.EncodeToString(rev)
}

// IsZero reports whether h is the all-zero hash, used as the "no request in
// flight" / "no locator stop" sentinel.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// EncodeBinary writes the hash verbatim (not reversed).
func (h *Hash) EncodeBinary(w *wireio.BinWriter) {
	w.WriteBytes(h[:])
}

// DecodeBinary reads the hash verbatim.
func (h *Hash) DecodeBinary(r *wireio.BinReader) {
	r.ReadBytes(h[:])
}

// NetAddr is a node address as gossiped in addr messages and as carried by
// candidate and peer bookkeeping. IP is always stored as a 16-byte form;
// IPv4 addresses use the standard ::ffff:a.b.c.d mapping.
type NetAddr struct {
	Services uint64
	IP       [16]byte
	Port     uint16
}

// IsIPv4 reports whether the address is an IPv4-mapped IPv6 address, the
// only form the candidate registry accepts.
func (a NetAddr) IsIPv4() bool {
	return net.IP(a.IP[:]).To4() != nil
}

// IPString renders IP in dotted or colon notation as appropriate.
func (a NetAddr) IPString() string {
	return net.IP(a.IP[:]).String()
}

// Key returns a stable map key for the address, used by the candidate
// registry and peer pool to identify a unique node.
func (a NetAddr) Key() string {
	return fmt.Sprintf("%s:%d", a.IPString(), a.Port)
}

func (a *NetAddr) EncodeBinary(w *wireio.BinWriter) {
	w.WriteLE(a.Services)
	w.WriteBytes(a.IP[:])
	w.WriteBE(a.Port)
}

func (a *NetAddr) DecodeBinary(r *wireio.BinReader) {
	r.ReadLE(&a.Services)
	r.ReadBytes(a.IP[:])
	r.ReadBE(&a.Port)
}

// NetAddrFromTCP builds a NetAddr from a dialed/accepted TCP address.
func NetAddrFromTCP(addr *net.TCPAddr, services uint64) NetAddr {
	var out NetAddr
	copy(out.IP[:], addr.IP.To16())
	out.Port = uint16(addr.Port)
	out.Services = services
	return out
}
