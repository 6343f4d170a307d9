package network

import (
	"fmt"
	"net"

	"go.uber.org/zap"
)

// killInstruction is the literal command that triggers a clean shutdown.
// The match only requires this many bytes to have arrived and to prefix the
// read buffer exactly; anything after it (a trailing newline, extra
// arguments) is ignored rather than rejected.
const killInstruction = "KILL"

// adminListener accepts local control connections on a TCP port and watches
// for the KILL instruction. It never writes a response: the connecting
// client is expected to simply observe the node exiting.
type adminListener struct {
	ln     net.Listener
	events chan<- event
	log    *zap.Logger
	stop   chan struct{}
}

// newAdminListener binds to 0.0.0.0:port with the given accept backlog.
// The backlog argument documents intent; Go's net package does not expose
// SO_LISTEN backlog tuning, so it is not passed through to the kernel call,
// unlike the original's explicit uv_listen backlog.
func newAdminListener(port, backlog int, events chan<- event, log *zap.Logger) (*adminListener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, err
	}
	return &adminListener{ln: ln, events: events, log: log, stop: make(chan struct{})}, nil
}

// Start runs the accept loop in its own goroutine.
func (a *adminListener) Start() {
	go a.acceptLoop()
}

func (a *adminListener) acceptLoop() {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			select {
			case <-a.stop:
				return
			default:
				a.log.Warn("admin listener accept failed", zap.Error(err))
				return
			}
		}
		go a.handle(conn)
	}
}

func (a *adminListener) handle(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}
	// The instruction must be fully present and an exact prefix match; a
	// short read (fewer bytes than the instruction itself) is never
	// mistaken for a match even if every byte received so far agrees.
	if n >= len(killInstruction) && string(buf[:len(killInstruction)]) == killInstruction {
		a.log.Info("admin listener received KILL")
		select {
		case a.events <- adminKillEvent{}:
		case <-a.stop:
		}
	}
}

// Close stops accepting new connections.
func (a *adminListener) Close() error {
	close(a.stop)
	return a.ln.Close()
}
