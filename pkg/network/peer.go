package network

import (
	"net"
	"time"

	"github.com/blaesus/ctbc/pkg/wire/payload"
)

// PeerState names where a slot sits in the connection lifecycle. Every
// transition is driven by an event reaching the central event loop; nothing
// outside it mutates a Peer's state directly.
type PeerState int

const (
	// StateIdle means the slot holds no live connection.
	StateIdle PeerState = iota
	// StateConnecting means a dial is in flight; no bytes have been
	// exchanged yet.
	StateConnecting
	// StateHandshakeHalf means the TCP connection is up and our version
	// message has been sent, but the handshake has not completed in both
	// directions yet.
	StateHandshakeHalf
	// StateActive means both sides have accepted each other's version and
	// normal protocol traffic (inv, addr, ping, block fetch) may flow.
	StateActive
	// StateClosing means the connection is being torn down; the slot is
	// not eligible for rebinding until the close completes.
	StateClosing
)

// ringSize is the number of recent round-trip samples kept per peer for
// latency averaging.
const ringSize = 5

// latencyRing is a fixed-size circular buffer of recent ping round trips.
type latencyRing struct {
	samples [ringSize]time.Duration
	count   int
	next    int
}

func (l *latencyRing) add(d time.Duration) {
	l.samples[l.next] = d
	l.next = (l.next + 1) % ringSize
	if l.count < ringSize {
		l.count++
	}
}

func (l *latencyRing) average() time.Duration {
	if l.count == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < l.count; i++ {
		sum += l.samples[i]
	}
	return sum / time.Duration(l.count)
}

// handshakeState tracks the two independent acceptance flags a handshake
// needs: each side announces acceptance of the other by sending verack
// after validating the peer's version.
type handshakeState struct {
	Start        time.Time
	ThemAcceptUs bool
	UsAcceptThem bool
}

func (h handshakeState) complete() bool { return h.ThemAcceptUs && h.UsAcceptThem }

// pingState tracks the single in-flight ping a peer may have outstanding.
type pingState struct {
	Nonce    uint64
	SentAt   time.Time
	Pending  bool
}

// Peer is one slot's worth of protocol state: everything the handler and
// scheduler need to know about a connection, independent of the raw socket
// plumbing that conn.go owns.
type Peer struct {
	Index        int
	CandidateKey string
	Address      payload.NetAddr

	State           PeerState
	ConnectionStart time.Time
	Handshake       handshakeState
	LastHeard       time.Time

	Services    uint64
	ChainHeight uint32

	Ping    pingState
	latency latencyRing

	// Requesting is the hash of the block this slot has an outstanding
	// getdata request for; the zero hash means no request is in flight.
	// A slot may only have one request outstanding at a time.
	Requesting payload.Hash

	Framer *Framer

	conn *peerConn
}

// NewPeer creates an unbound slot at the given pool index.
func NewPeer(index int) *Peer {
	return &Peer{Index: index, State: StateIdle}
}

// IsRequesting reports whether a getdata request is currently outstanding.
func (p *Peer) IsRequesting() bool { return !p.Requesting.IsZero() }

// RecordPong matches a received pong nonce against the outstanding ping,
// returning the measured round trip and whether it matched.
func (p *Peer) RecordPong(nonce uint64, now time.Time) (time.Duration, bool) {
	if !p.Ping.Pending || p.Ping.Nonce != nonce {
		return 0, false
	}
	rtt := now.Sub(p.Ping.SentAt)
	p.latency.add(rtt)
	p.Ping.Pending = false
	return rtt, true
}

// RecordOverduePing folds the age of a ping that never got a pong back into
// the latency ring as a sample, and clears the pending flag so a fresh ping
// can be sent. A missed pong is still a latency measurement, just a bad one.
func (p *Peer) RecordOverduePing(now time.Time) time.Duration {
	overdue := now.Sub(p.Ping.SentAt)
	p.latency.add(overdue)
	p.Ping.Pending = false
	return overdue
}

// AverageLatency returns the peer's running average ping round trip.
func (p *Peer) AverageLatency() time.Duration { return p.latency.average() }

// reset clears a slot back to idle so it can be rebound. It must only be
// called after the previous connection's close has fully completed.
func (p *Peer) reset() {
	*p = Peer{Index: p.Index, State: StateIdle}
}

// remoteTCPAddr extracts the dialed address, used to build the NetAddr
// recorded for an outgoing connection.
func remoteTCPAddr(c net.Conn) *net.TCPAddr {
	if a, ok := c.RemoteAddr().(*net.TCPAddr); ok {
		return a
	}
	return nil
}
