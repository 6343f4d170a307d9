package network

import (
	"fmt"
	"math/rand"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/blaesus/ctbc/pkg/chain"
	"github.com/blaesus/ctbc/pkg/config"
	"github.com/blaesus/ctbc/pkg/wire"
	"github.com/blaesus/ctbc/pkg/wire/payload"
)

const eventQueueDepth = 256

// Server is the single owner of all peer, pool, and candidate-registry
// state. Everything that can happen asynchronously — a socket read, a
// completed write, a dial outcome, a scheduler tick, an admin KILL — is
// turned into an event and handled one at a time on Run's goroutine. This
// mirrors the cooperative single-threaded event loop the original node ran
// on a libuv reactor, translated into Go as one goroutine reading a channel
// instead of one thread polling a reactor, with per-peer goroutines doing
// nothing but moving bytes.
type Server struct {
	cfg   *config.NodeConfig
	log   *zap.Logger
	clock Clock
	chain chain.Chain

	registry *Registry
	pool     *pool
	metrics  *Metrics
	rnd      *rand.Rand

	scheduler *scheduler
	admin     *adminListener

	conns map[int]*peerConn

	events chan event
	quit   chan struct{}
	done   chan struct{}
}

// NewServer wires up a Server ready to Run. It performs no I/O until Run is
// called.
func NewServer(cfg *config.NodeConfig, log *zap.Logger, clock Clock, c chain.Chain, metrics *Metrics) *Server {
	if clock == nil {
		clock = SystemClock
	}
	poolSize := cfg.MaxOutgoing

	s := &Server{
		cfg:      cfg,
		log:      log,
		clock:    clock,
		chain:    c,
		registry: NewRegistry(clock, clock.Now().UnixNano()),
		pool:     newPool(poolSize),
		metrics:  metrics,
		rnd:      rand.New(rand.NewSource(clock.Now().UnixNano())),
		conns:    make(map[int]*peerConn),
		events:   make(chan event, eventQueueDepth),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.scheduler = newScheduler(defaultTaskTable(periodsConfig{
		DataExchange:    cfg.Periods.DataExchange,
		PersistIndices:  cfg.Periods.PersistIndices,
		Autoexit:        cfg.Periods.Autoexit,
		RecomputeIBD:    cfg.Periods.RecomputeIBD,
		CheckLiveness:   cfg.Periods.CheckLiveness,
		Ping:            cfg.Periods.Ping,
		PrintNodeStatus: cfg.Periods.PrintNodeStatus,
	}), s.events)
	return s
}

// SeedAddress registers one configured seed address as a candidate, dated
// now so it scores at the freshest tier until proven otherwise.
func (s *Server) SeedAddress(addr payload.NetAddr) {
	s.registry.Add(addr, s.clock.Now())
}

// Run starts the scheduler and admin listener, binds initial candidates to
// every free slot, and then services events until Stop is called or an
// admin KILL arrives. It blocks until shutdown completes.
func (s *Server) Run() error {
	admin, err := newAdminListener(s.cfg.AdminPort, s.cfg.AdminBacklog, s.events, s.log)
	if err != nil {
		return fmt.Errorf("network: admin listener: %w", err)
	}
	s.admin = admin
	s.admin.Start()
	s.scheduler.Start()

	s.fillSlots()

	for {
		select {
		case <-s.quit:
			s.shutdown()
			close(s.done)
			return nil
		case ev := <-s.events:
			s.handleEvent(ev)
		}
	}
}

// Stop requests a clean shutdown and waits for Run to return.
func (s *Server) Stop() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.done
}

func (s *Server) shutdown() {
	s.scheduler.Stop()
	if s.admin != nil {
		s.admin.Close()
	}
	for _, c := range s.conns {
		c.Close()
	}
}

func (s *Server) handleEvent(ev event) {
	switch e := ev.(type) {
	case connectedEvent:
		s.onConnected(e)
	case connectFailedEvent:
		s.onConnectFailed(e)
	case segmentEvent:
		s.onSegment(e)
	case messageEvent:
		s.onMessage(e)
	case writeDoneEvent:
		s.onWriteDone(e)
	case readErrorEvent:
		s.onReadError(e)
	case closeCompleteEvent:
		s.onCloseComplete(e)
	case tickEvent:
		s.onTick(e)
	case adminKillEvent:
		s.log.Info("shutting down on admin KILL instruction")
		select {
		case <-s.quit:
		default:
			close(s.quit)
		}
	}
}

// fillSlots binds the best available non-peer candidate to every free slot
// up to the pool's current target size, then dials each one.
func (s *Server) fillSlots() {
	target := s.pool.TargetSize(s.cfg.MaxOutgoing, s.cfg.MaxOutgoingIBD)
	for {
		index := s.pool.FreeSlot(target)
		if index < 0 {
			return
		}
		candidate, key, ok := s.registry.PickBestNonPeer(s.pool.bound, ScoringConfig{
			LatencyTolerance: s.cfg.Tolerances.Latency,
		})
		if !ok {
			return
		}
		s.bindAndDial(index, candidate, key)
	}
}

func (s *Server) bindAndDial(index int, candidate *Candidate, key string) {
	s.pool.Bind(index, key)
	peer := s.pool.slots[index]
	peer.Address = candidate.Address
	peer.State = StateConnecting
	peer.ConnectionStart = s.clock.Now()

	addr := &net.TCPAddr{IP: net.IP(candidate.Address.IP[:]), Port: int(candidate.Address.Port)}
	dialPeer(index, addr.String(), s.events, s.log)
}

func (s *Server) onConnected(e connectedEvent) {
	peer := s.pool.slots[e.index]
	if peer.State != StateConnecting {
		e.conn.Close()
		return
	}
	s.conns[e.index] = e.conn
	peer.Framer = NewFramer(s.cfg.StreamBufferCapacity, wire.Magic(s.cfg.Magic), s.log)
	peer.State = StateHandshakeHalf
	peer.Handshake.Start = s.clock.Now()
	peer.LastHeard = s.clock.Now()

	s.sendVersion(peer)
}

func (s *Server) onConnectFailed(e connectFailedEvent) {
	s.log.Debug("outgoing dial failed", zap.Int("slot", e.index), zap.Error(e.err))
	peer := s.pool.slots[e.index]
	key := peer.CandidateKey
	s.registry.Disable(key)
	s.pool.Unbind(e.index)
	s.fillSlots()
}

func (s *Server) onSegment(e segmentEvent) {
	peer := s.pool.slots[e.index]
	if peer.Framer == nil {
		return
	}
	peer.LastHeard = s.clock.Now()
	err := peer.Framer.Feed(e.data, func(msg *wire.Message) {
		s.handleEvent(messageEvent{index: e.index, msg: msg})
	})
	if err != nil {
		s.log.Warn("framer error, replacing peer", zap.Int("slot", e.index), zap.Error(err))
		s.replacePeer(e.index, false)
	}
}

func (s *Server) onMessage(e messageEvent) {
	peer := s.pool.slots[e.index]
	if peer.State == StateIdle || peer.State == StateClosing {
		return
	}
	if !isSilentCommand(e.msg.Command, s.cfg.SilentIncomingMessageCommands) {
		s.log.Debug("received message", zap.Int("slot", e.index), zap.String("command", e.msg.Command))
	}
	if s.metrics != nil {
		s.metrics.MessagesReceived.WithLabelValues(e.msg.Command).Inc()
	}
	if peer.CandidateKey != "" {
		if c, ok := s.registry.Get(peer.CandidateKey); ok {
			c.LastSeen = s.clock.Now()
		}
	}
	s.dispatch(peer, e.msg)
}

func (s *Server) onWriteDone(e writeDoneEvent) {
	peer := s.pool.slots[e.index]
	if e.err != nil {
		s.log.Warn("write failed, replacing peer", zap.Int("slot", e.index), zap.Error(e.err))
		s.replacePeer(e.index, false)
		return
	}
	switch e.command {
	case "version":
		// The handshake clock starts from the moment our version is
		// actually on the wire, not when it was merely enqueued.
		peer.Handshake.Start = s.clock.Now()
	case "ping":
		peer.Ping.SentAt = s.clock.Now()
		peer.Ping.Pending = true
	}
}

func (s *Server) onReadError(e readErrorEvent) {
	s.log.Debug("peer read error", zap.Int("slot", e.index), zap.Error(e.err))
	s.replacePeer(e.index, false)
}

func (s *Server) onCloseComplete(e closeCompleteEvent) {
	delete(s.conns, e.index)
	s.pool.Unbind(e.index)
	s.fillSlots()
}

func (s *Server) onTick(e tickEvent) {
	switch e.name {
	case "data_exchange":
		s.exchangeData()
	case "persist_chain_indices":
		if err := s.chain.SaveChainData(); err != nil {
			s.log.Warn("failed to persist chain data", zap.Error(err))
		}
	case "autoexit":
		s.log.Info("autoexit period elapsed, shutting down")
		select {
		case <-s.quit:
		default:
			close(s.quit)
		}
	case "recompute_ibd":
		s.recomputeIBDMode()
	case "check_liveness":
		s.checkLiveness()
	case "ping":
		s.pingActivePeers()
	case "print_node_status":
		s.printNodeStatus()
	}
}

// replacePeer closes a slot's connection (if any) and, if disableCandidate
// is true, marks its candidate disabled. The slot is not actually freed
// until the close-complete event for it arrives; fillSlots is called again
// from onCloseComplete, never from here.
func (s *Server) replacePeer(index int, disableCandidate bool) {
	peer := s.pool.slots[index]
	if peer.State == StateIdle || peer.State == StateClosing {
		return
	}
	if disableCandidate && peer.CandidateKey != "" {
		s.registry.Disable(peer.CandidateKey)
	}
	peer.State = StateClosing
	if c, ok := s.conns[index]; ok {
		c.Close()
	} else {
		// No connection was ever established (a race with a dial that
		// hasn't reported in yet); report the close as complete through the
		// event loop, as a closed connection would.
		go func() { s.events <- closeCompleteEvent{index: index} }()
	}
}

func isSilentCommand(command string, silent []string) bool {
	for _, c := range silent {
		if strings.Contains(c, command) {
			return true
		}
	}
	return false
}
