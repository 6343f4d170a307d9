package network

import "github.com/blaesus/ctbc/pkg/wire"

// event is the sealed set of things that can happen asynchronously and need
// to be handled on the central event loop goroutine. Per-peer read and
// write goroutines only ever produce events; they never touch peer, pool,
// or registry state directly.
type event interface{ isEvent() }

// connectedEvent reports that an outgoing dial to a slot's candidate
// succeeded and the connection is ready for the handshake to begin.
type connectedEvent struct {
	index int
	conn  *peerConn
}

func (connectedEvent) isEvent() {}

// connectFailedEvent reports that a dial never established a connection.
type connectFailedEvent struct {
	index int
	err   error
}

func (connectFailedEvent) isEvent() {}

// segmentEvent carries a raw chunk of bytes read off a peer's socket, to be
// fed into that peer's framer on the event loop.
type segmentEvent struct {
	index int
	data  []byte
}

func (segmentEvent) isEvent() {}

// messageEvent carries one fully decoded message ready for dispatch.
type messageEvent struct {
	index int
	msg   *wire.Message
}

func (messageEvent) isEvent() {}

// writeDoneEvent reports that a previously enqueued write to a peer's
// socket has completed (successfully or not), in the same order the writes
// were enqueued.
type writeDoneEvent struct {
	index   int
	command string
	err     error
}

func (writeDoneEvent) isEvent() {}

// readErrorEvent reports that a peer's read loop hit an unrecoverable
// socket error and is shutting down.
type readErrorEvent struct {
	index int
	err   error
}

func (readErrorEvent) isEvent() {}

// closeCompleteEvent reports that a peer's connection has been fully torn
// down: both goroutines have exited and the socket is closed. Only after
// this arrives may the slot be rebound.
type closeCompleteEvent struct {
	index int
}

func (closeCompleteEvent) isEvent() {}

// tickEvent carries a scheduler firing for a named periodic task.
type tickEvent struct {
	name string
}

func (tickEvent) isEvent() {}

// adminKillEvent reports that the admin listener received a KILL command.
type adminKillEvent struct{}

func (adminKillEvent) isEvent() {}
