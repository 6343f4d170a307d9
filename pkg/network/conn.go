package network

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	dialTimeout     = 10 * time.Second
	readChunkSize   = 16 * 1024
	writeQueueDepth = 64
)

// outboundWrite is one already-serialized message queued for a peer.
type outboundWrite struct {
	command string
	data    []byte
}

// peerConn owns the live socket for one slot and the two goroutines that
// move bytes across it. It never inspects protocol state: it only turns
// reads into segmentEvents and write requests into writeDoneEvents, both
// delivered to the central event loop, which is the only place peer state
// is ever mutated. Writes are strictly FIFO, so the handler can rely on
// write-completion events arriving in the order the writes were enqueued.
type peerConn struct {
	index  int
	conn   net.Conn
	outbox chan outboundWrite
	events chan<- event
	done   chan struct{}
	wg     sync.WaitGroup
	log    *zap.Logger
}

func newPeerConn(index int, conn net.Conn, events chan<- event, log *zap.Logger) *peerConn {
	pc := &peerConn{
		index:  index,
		conn:   conn,
		outbox: make(chan outboundWrite, writeQueueDepth),
		events: events,
		done:   make(chan struct{}),
		log:    log,
	}
	pc.wg.Add(2)
	go func() {
		defer pc.wg.Done()
		pc.readLoop()
	}()
	go func() {
		defer pc.wg.Done()
		pc.writeLoop()
	}()
	return pc
}

// dialPeer starts an asynchronous outgoing connection attempt and reports
// its outcome as a connectedEvent or connectFailedEvent.
func dialPeer(index int, addr string, events chan<- event, log *zap.Logger) {
	go func() {
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			events <- connectFailedEvent{index: index, err: err}
			return
		}
		events <- connectedEvent{index: index, conn: newPeerConn(index, conn, events, log)}
	}()
}

func (pc *peerConn) readLoop() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := pc.conn.Read(buf)
		if n > 0 {
			segment := make([]byte, n)
			copy(segment, buf[:n])
			select {
			case pc.events <- segmentEvent{index: pc.index, data: segment}:
			case <-pc.done:
				return
			}
		}
		if err != nil {
			select {
			case pc.events <- readErrorEvent{index: pc.index, err: err}:
			case <-pc.done:
			}
			return
		}
	}
}

func (pc *peerConn) writeLoop() {
	for {
		select {
		case w, ok := <-pc.outbox:
			if !ok {
				return
			}
			_, err := pc.conn.Write(w.data)
			select {
			case pc.events <- writeDoneEvent{index: pc.index, command: w.command, err: err}:
			case <-pc.done:
				return
			}
			if err != nil {
				return
			}
		case <-pc.done:
			return
		}
	}
}

// Send enqueues a message for the write goroutine. It never blocks on a
// full queue for longer than it takes the connection to be closed.
func (pc *peerConn) Send(command string, data []byte) {
	select {
	case pc.outbox <- outboundWrite{command: command, data: data}:
	case <-pc.done:
	}
}

// Close tears down the connection and, once both goroutines have actually
// exited, posts a closeCompleteEvent. Rebinding the slot before that event
// arrives would race the in-flight goroutines, so the pool never does.
func (pc *peerConn) Close() {
	select {
	case <-pc.done:
		return
	default:
		close(pc.done)
	}
	pc.conn.Close()
	go func() {
		pc.wg.Wait()
		pc.events <- closeCompleteEvent{index: pc.index}
	}()
}
